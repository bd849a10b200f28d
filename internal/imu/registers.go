package imu

// I2C addresses.
const (
	AddrBNO055     = 0x28
	AddrBNO055Alt  = 0x29
	AddrMPU6050    = 0x68 // also MPU9250
	AddrMPU6050Alt = 0x69
	AddrLSM6DS3    = 0x6A
)

// MPU6050 / MPU9250 registers.
const (
	mpuRegPwrMgmt1   = 0x6B
	mpuRegAccelXOutH = 0x3B
	mpuRegWhoAmI     = 0x75
)

// LSM6DS3 registers and settings.
const (
	lsmRegCtrl1XL = 0x10
	lsmRegOutXLXL = 0x28
	lsmRegWhoAmI  = 0x0F

	lsmCtrl1XL104Hz2g = 0x40 // ODR 104 Hz, ±2 g
)

// BNO055 registers and settings.
const (
	bnoRegChipID       = 0x00
	bnoRegAccelXLSB    = 0x08
	bnoRegPageID       = 0x07
	bnoRegOprMode      = 0x3D
	bnoRegPwrMode      = 0x3E
	bnoRegSysTrigger   = 0x3F
	bnoChipID          = 0xA0
	bnoOprModeConfig   = 0x00
	bnoOprModeNDOF     = 0x0C
	bnoPowerModeNormal = 0x00
)

// Timing, in milliseconds.
const (
	DefaultBootDelayMs = 1000
	DefaultSettleMs    = 20

	mpuWakeSettleMs = 10
	lsmSettleMs     = 10

	bnoChipIDTimeoutMs = 850
	bnoChipIDRetryMs   = 10
	bnoChipIDLastTryMs = 100

	bnoConfigModeMs = 25
	bnoStepMs       = 10
	bnoNDOFModeMs   = 20

	calibrationSamples    = 10
	calibrationIntervalMs = 10
	restingGravityMg      = 1000
)
