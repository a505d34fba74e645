//go:build rp2040

package main

import (
	"machine"

	"benchscope/core"
)

const debugBaud = 115200

// initDebugUART routes core debug output to UART0 on GP0 (TX) and GP1
// (RX). A board without the adapter attached loses nothing but the text.
func initDebugUART() {
	uart := machine.UART0
	if err := uart.Configure(machine.UARTConfig{
		BaudRate: debugBaud,
		TX:       machine.GP0,
		RX:       machine.GP1,
	}); err != nil {
		return
	}
	core.SetDebugWriter(func(s string) {
		uart.Write([]byte(s))
		uart.Write([]byte("\r\n"))
	})
	core.SetDebugEnabled(true)
	core.InitAsyncDebug()
	core.DebugPrintln("=== benchscope rp2040 ===")
}
