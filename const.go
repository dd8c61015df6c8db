package loralink

// SX127x register map and mode bits, limited to what the hardware backend
// touches.

type register byte
type opMode byte

const (
	regFifo              register = 0x00
	regOpMode            register = 0x01
	regFrfMsb            register = 0x06
	regFrfMid            register = 0x07
	regFrfLsb            register = 0x08
	regLna               register = 0x0c
	regFifoAddrPtr       register = 0x0d
	regFifoTxBaseAddr    register = 0x0e
	regFifoRxBaseAddr    register = 0x0f
	regFifoRxCurrentAddr register = 0x10
	regIrqFlags          register = 0x12
	regRxNbBytes         register = 0x13
	regPktRssiValue      register = 0x1a
	regModemConfig1      register = 0x1d
	regModemConfig2      register = 0x1e
	regPayloadLength     register = 0x22
	regModemConfig3      register = 0x26
	regDioMapping1       register = 0x40
	regVersion           register = 0x42
)

const (
	modeLongRange    opMode = 0x80
	modeSleep        opMode = 0x00
	modeStandby      opMode = 0x01
	modeTx           opMode = 0x03
	modeRxContinuous opMode = 0x05
	modeMask         opMode = 0x07
)

const (
	irqTxDoneMask          byte = 0x08
	irqPayloadCrcErrorMask byte = 0x20
	irqRxDoneMask          byte = 0x40
)

const (
	chipVersion byte = 0x12

	// FRF step: crystal frequency over 2^19.
	crystalHz uint64 = 32000000

	// Packet RSSI offset switches at the HF/LF port boundary.
	midBandThresholdHz uint64 = 525000000
	rssiOffsetHF       int16  = 157
	rssiOffsetLF       int16  = 164

	dioMapRxDone byte = 0x00
	dioMapTxDone byte = 0x40

	agcAutoOn byte = 0x04
)
