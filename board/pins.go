package board

import (
	"nucleo-go/device/stm32l0"
	"nucleo-go/errcode"
	"nucleo-go/hal/gpio"
)

// Pins is connectors CN3 and CN4 in their post-reset state.
type Pins struct {
	// CN3
	D0  gpio.AnalogPin // PA10: USART2_RX, I2C1_SDA
	D1  gpio.AnalogPin // PA9: USART2_TX, I2C1_SCL
	D2  gpio.AnalogPin // PA12
	D3  gpio.AnalogPin // PB0
	D4  gpio.AnalogPin // PB7: I2C1_SDA, USART2_RX
	D5  gpio.AnalogPin // PB6: I2C1_SCL, USART2_TX
	D6  gpio.AnalogPin // PB1
	D7  gpio.AnalogPin // PC14: OSC32_IN
	D8  gpio.AnalogPin // PC15: OSC32_OUT
	D9  gpio.AnalogPin // PA8: MCO
	D10 gpio.AnalogPin // PA11
	D11 gpio.AnalogPin // PB5
	D12 gpio.AnalogPin // PB4

	// CN4
	D13 gpio.AnalogPin // PB3: user LED LD3
	A0  gpio.AnalogPin // PA0
	A1  gpio.AnalogPin // PA1
	A2  gpio.AnalogPin // PA3
	A3  gpio.AnalogPin // PA4
	A4  gpio.AnalogPin // PA5
	A5  gpio.AnalogPin // PA6
	A6  gpio.AnalogPin // PA7
	A7  gpio.AnalogPin // PA2: USART2_TX, the VCP
}

// Pins splits all three GPIO banks and hands out the connector pins. PA15
// stays with the board for VCPSerial; PA13/PA14 (SWD) are never handed out.
func (b *Board) Pins(gpioa, gpiob, gpioc *stm32l0.GPIO) *Pins {
	pa := gpio.Split(gpioa, b.RCC.IOP)
	pb := gpio.Split(gpiob, b.RCC.IOP)
	pc := gpio.Split(gpioc, b.RCC.IOP)

	b.vcpRX, b.hasVCPRX = pa.P[15], true
	return &Pins{
		D0:  pa.P[10],
		D1:  pa.P[9],
		D2:  pa.P[12],
		D3:  pb.P[0],
		D4:  pb.P[7],
		D5:  pb.P[6],
		D6:  pb.P[1],
		D7:  pc.P[14],
		D8:  pc.P[15],
		D9:  pa.P[8],
		D10: pa.P[11],
		D11: pb.P[5],
		D12: pb.P[4],

		D13: pb.P[3],
		A0:  pa.P[0],
		A1:  pa.P[1],
		A2:  pa.P[3],
		A3:  pa.P[4],
		A4:  pa.P[5],
		A5:  pa.P[6],
		A6:  pa.P[7],
		A7:  pa.P[2],
	}
}

func want(c gpio.Configurable, port gpio.Port, n uint8, op string) {
	if id := c.ID(); id != (gpio.ID{Port: port, N: n}) {
		errcode.Fatal(errcode.WrongPin, op, id.String())
	}
}

func fatalPin(op, pin string) {
	errcode.Fatal(errcode.PinInUse, op, pin)
}
