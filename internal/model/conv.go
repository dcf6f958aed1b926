package model

import "math"

// Itoa is a minimal int-to-string converter for key building.
func Itoa(n int) string {
	if n == 0 {
		return "0"
	}
	buf := [20]byte{}
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// PaiseToPrice converts a stored paise amount to a float price (1 INR = 100 paise).
func PaiseToPrice(p int64) float64 {
	return float64(p) / 100
}

// PriceToPaise rounds a float price to the nearest paisa.
func PriceToPaise(price float64) int64 {
	return int64(math.Round(price * 100))
}
