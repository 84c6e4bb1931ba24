package bd18398

import "bd18398-evk/x/mathx"

// ComputeISET converts a maximum LED current to the 10-bit ISET code:
//
//	iset = round(mA * Rsense[mΩ] * 12 * 1024 / Vref[µV])
//
// Results above BrightnessMax are clamped and reported via clamped.
func ComputeISET(mA uint32) (iset uint16, clamped bool) {
	num := uint64(mA) * RSenseMilliOhm * ISETGain * 1024
	v, cut := mathx.ClampReport(mathx.RoundDiv(num, uint64(ADCVRefMicroV)), BrightnessMax)
	return uint16(v), cut
}
