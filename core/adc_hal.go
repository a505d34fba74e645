package core

// ADCChannel identifies a logical ADC channel understood by the target.
type ADCChannel uint8

// ADCValue is the raw reading as seen by the rest of the firmware.
// Convention: 16-bit value, even if the hardware converts fewer bits.
type ADCValue uint16

// ADCDriver is the abstract ADC interface that core code uses.
type ADCDriver interface {
	// ConfigureChannel prepares a channel for analog input.
	ConfigureChannel(ch ADCChannel) error

	// ReadRaw performs a one-shot sample from the given channel.
	ReadRaw(ch ADCChannel) (ADCValue, error)
}

// Global singleton used by target code.
var adcDriver ADCDriver

// SetADCDriver is called by target-specific code to register its driver.
func SetADCDriver(d ADCDriver) {
	adcDriver = d
}

// MustADC returns the configured driver or panics if missing.
func MustADC() ADCDriver {
	if adcDriver == nil {
		panic("ADC driver not configured")
	}
	return adcDriver
}
