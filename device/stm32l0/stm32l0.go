// Package stm32l0 holds the STM32L0x1 register map used by this module
// (RM0377 and PM0223 for the core peripherals) and the claim ledger that
// hands out each register block to exactly one owner.
package stm32l0

// Peripheral base addresses.
const (
	PWRBase     = 0x4000_7000
	FLASHBase   = 0x4002_2000
	RCCBase     = 0x4002_1000
	GPIOABase   = 0x5000_0000
	GPIOBBase   = 0x5000_0400
	GPIOCBase   = 0x5000_0800
	USART2Base  = 0x4000_4400
	I2C1Base    = 0x4000_5400
	SysTickBase = 0xE000_E010
)

// RCC registers.
const (
	RCC_CR      = 0x00
	RCC_ICSCR   = 0x04
	RCC_CFGR    = 0x0C
	RCC_IOPENR  = 0x2C
	RCC_AHBENR  = 0x30
	RCC_APB2ENR = 0x34
	RCC_APB1ENR = 0x38
	RCC_CCIPR   = 0x4C
	RCC_CSR     = 0x50

	RCC_CR_HSI16ON   = 1 << 0
	RCC_CR_HSI16RDYF = 1 << 2
	RCC_CR_MSION     = 1 << 8
	RCC_CR_MSIRDY    = 1 << 9

	RCC_ICSCR_MSIRANGE_Pos = 13
	RCC_ICSCR_MSIRANGE_Msk = 0x7

	RCC_CFGR_SW_Pos    = 0
	RCC_CFGR_SW_Msk    = 0x3
	RCC_CFGR_SWS_Pos   = 2
	RCC_CFGR_SWS_Msk   = 0x3
	RCC_CFGR_HPRE_Pos  = 4
	RCC_CFGR_HPRE_Msk  = 0xF
	RCC_CFGR_PPRE1_Pos = 8
	RCC_CFGR_PPRE1_Msk = 0x7
	RCC_CFGR_PPRE2_Pos = 11
	RCC_CFGR_PPRE2_Msk = 0x7

	RCC_CFGR_SW_MSI   = 0
	RCC_CFGR_SW_HSI16 = 1

	RCC_IOPENR_GPIOAEN = 1 << 0
	RCC_IOPENR_GPIOBEN = 1 << 1
	RCC_IOPENR_GPIOCEN = 1 << 2

	RCC_APB1ENR_USART2EN = 1 << 17
	RCC_APB1ENR_I2C1EN   = 1 << 21
	RCC_APB1ENR_PWREN    = 1 << 28

	RCC_CCIPR_USART2SEL_Pos = 2
	RCC_CCIPR_USART2SEL_Msk = 0x3
	RCC_CCIPR_I2C1SEL_Pos   = 12
	RCC_CCIPR_I2C1SEL_Msk   = 0x3

	RCC_CSR_RTCEN = 1 << 18

	// Reset values.
	RCC_CR_Reset    = RCC_CR_MSION | RCC_CR_MSIRDY
	RCC_ICSCR_Reset = 5 << RCC_ICSCR_MSIRANGE_Pos // MSI range 5, 2.097 MHz
)

// PWR registers.
const (
	PWR_CR  = 0x00
	PWR_CSR = 0x04

	PWR_CR_DBP     = 1 << 8
	PWR_CR_VOS_Pos = 11
	PWR_CR_VOS_Msk = 0x3

	PWR_CSR_VOSF = 1 << 4

	PWR_CR_Reset = 2 << PWR_CR_VOS_Pos // range 2 after reset
)

// FLASH registers.
const (
	FLASH_ACR = 0x00

	FLASH_ACR_LATENCY = 1 << 0
	FLASH_ACR_PRFTEN  = 1 << 1
)

// GPIO registers.
const (
	GPIO_MODER   = 0x00
	GPIO_OTYPER  = 0x04
	GPIO_OSPEEDR = 0x08
	GPIO_PUPDR   = 0x0C
	GPIO_IDR     = 0x10
	GPIO_ODR     = 0x14
	GPIO_BSRR    = 0x18
	GPIO_AFRL    = 0x20
	GPIO_AFRH    = 0x24
	GPIO_BRR     = 0x28

	GPIO_MODE_Input  = 0
	GPIO_MODE_Output = 1
	GPIO_MODE_AltFn  = 2
	GPIO_MODE_Analog = 3

	// Reset values. PA13/PA14 come up as SWD (AF0, pull-up/pull-down).
	GPIOA_MODER_Reset   = 0xEBFF_FFFF
	GPIOX_MODER_Reset   = 0xFFFF_FFFF
	GPIOA_PUPDR_Reset   = 0x2400_0000
	GPIOA_OSPEEDR_Reset = 0x0C00_0000
)

// USART registers.
const (
	USART_CR1 = 0x00
	USART_CR2 = 0x04
	USART_CR3 = 0x08
	USART_BRR = 0x0C
	USART_ISR = 0x1C
	USART_ICR = 0x20
	USART_RDR = 0x24
	USART_TDR = 0x28

	USART_CR1_UE = 1 << 0
	USART_CR1_RE = 1 << 2
	USART_CR1_TE = 1 << 3

	USART_ISR_PE   = 1 << 0
	USART_ISR_FE   = 1 << 1
	USART_ISR_ORE  = 1 << 3
	USART_ISR_RXNE = 1 << 5
	USART_ISR_TC   = 1 << 6
	USART_ISR_TXE  = 1 << 7

	USART_ICR_PECF  = 1 << 0
	USART_ICR_FECF  = 1 << 1
	USART_ICR_ORECF = 1 << 3
)

// I2C registers.
const (
	I2C_CR1     = 0x00
	I2C_CR2     = 0x04
	I2C_TIMINGR = 0x10
	I2C_ISR     = 0x18
	I2C_ICR     = 0x1C
	I2C_RXDR    = 0x24
	I2C_TXDR    = 0x28

	I2C_CR1_PE = 1 << 0

	I2C_CR2_SADD_Msk   = 0x3FF
	I2C_CR2_RD_WRN     = 1 << 10
	I2C_CR2_START      = 1 << 13
	I2C_CR2_STOP       = 1 << 14
	I2C_CR2_NBYTES_Pos = 16
	I2C_CR2_NBYTES_Msk = 0xFF
	I2C_CR2_AUTOEND    = 1 << 25

	I2C_ISR_TXE   = 1 << 0
	I2C_ISR_TXIS  = 1 << 1
	I2C_ISR_RXNE  = 1 << 2
	I2C_ISR_NACKF = 1 << 4
	I2C_ISR_STOPF = 1 << 5
	I2C_ISR_TC    = 1 << 6
	I2C_ISR_BUSY  = 1 << 15

	I2C_ICR_NACKCF = 1 << 4
	I2C_ICR_STOPCF = 1 << 5
)

// SysTick registers (PM0223).
const (
	SYST_CSR = 0x00
	SYST_RVR = 0x04
	SYST_CVR = 0x08

	SYST_CSR_ENABLE    = 1 << 0
	SYST_CSR_TICKINT   = 1 << 1
	SYST_CSR_CLKSOURCE = 1 << 2

	SYST_RVR_Max = 0x00FF_FFFF
)
