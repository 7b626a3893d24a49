package audio

// waveRAMSize is the number of bytes backing the custom-wave channel's
// 32 four-bit samples (two samples packed per byte).
const waveRAMSize = 16

// CPUClockHz is the reference clock the pulse and wave channel period
// formulas are expressed against.
const CPUClockHz = 4194304

// dutyThresholds maps the two-bit duty selector to the fraction of the
// period spent at nonzero output.
var dutyThresholds = [4]float64{0.125, 0.25, 0.5, 0.75}
