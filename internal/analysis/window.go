// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the apodization applied to each frame before the
// transform.
type WindowFunc int

// Available window functions. BlackmanHarris is the default: its side lobes
// sit around -92 dB, which keeps loud bass from bleeding into treble bars.
const (
	BlackmanHarris WindowFunc = iota
	BartlettHann
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

var windowNames = map[WindowFunc]string{
	BlackmanHarris:  "blackmanharris",
	BartlettHann:    "bartletthann",
	Blackman:        "blackman",
	BlackmanNuttall: "blackmannuttall",
	Hann:            "hann",
	Hamming:         "hamming",
	Lanczos:         "lanczos",
	Nuttall:         "nuttall",
}

func (w WindowFunc) String() string {
	if name, ok := windowNames[w]; ok {
		return name
	}
	return fmt.Sprintf("WindowFunc(%d)", int(w))
}

// ParseWindowFunc converts a config name (case-insensitive, "-" and "_"
// ignored) to a WindowFunc. Unknown names return BlackmanHarris and an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	key := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(name))
	switch key {
	case "", "blackmanharris":
		return BlackmanHarris, nil
	case "hanning":
		return Hann, nil
	}
	for w, n := range windowNames {
		if n == key {
			return w, nil
		}
	}
	return BlackmanHarris, fmt.Errorf("%w: unknown window function %q", ErrInvalidConfig, name)
}

// BuildWindow returns length coefficients of the selected window. The
// symmetric (L-1 denominator) form is used throughout, so
// w[i] == w[length-1-i]. For BlackmanHarris this is
//
//	0.35875 - 0.48829·cos(2πi/(L-1)) + 0.14128·cos(4πi/(L-1)) - 0.01168·cos(6πi/(L-1))
func BuildWindow(length int, fn WindowFunc) []float64 {
	coeffs := make([]float64, length)
	// gonum windows scale the sequence in place.
	for i := range coeffs {
		coeffs[i] = 1
	}
	if length < 2 {
		return coeffs
	}

	switch fn {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		window.BlackmanHarris(coeffs)
	}
	return coeffs
}
