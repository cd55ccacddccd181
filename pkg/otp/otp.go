// Package otp generates the random one-time passcodes that are e-mailed
// to admin users for verification.
package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
)

const (
	digitChars  = "0123456789"
	letterChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// DefaultLength is the code length used when none is configured.
	DefaultLength = 5
)

// Generator produces one-time passcodes.
type Generator interface {
	Generate() (string, error)
}

// RandomOpt configures a Random generator. DigitsOnly and LettersOnly
// are mutually exclusive. If both are false, the alphabet is
// digits+letters.
type RandomOpt struct {
	Length      int  `json:"length"`
	DigitsOnly  bool `json:"digits_only"`
	LettersOnly bool `json:"letters_only"`
}

// Random generates cryptographically random codes drawn from an
// alphabet of digits and/or letters.
type Random struct {
	length int
	chars  string
}

// NewRandom returns a Random generator for the given options.
func NewRandom(opt RandomOpt) (*Random, error) {
	if opt.DigitsOnly && opt.LettersOnly {
		return nil, errors.New("only one of digits_only or letters_only can be set")
	}
	if opt.Length < 1 {
		opt.Length = DefaultLength
	}

	chars := digitChars + letterChars
	if opt.DigitsOnly {
		chars = digitChars
	} else if opt.LettersOnly {
		chars = letterChars
	}

	return &Random{length: opt.Length, chars: chars}, nil
}

// Generate returns a random code.
func (r *Random) Generate() (string, error) {
	return randomString(r.length, r.chars)
}

// New returns the generator registered against the given name.
// Currently "random" (the default) is the only registered generator.
func New(name string, opt RandomOpt) (Generator, error) {
	switch name {
	case "", "random":
		return NewRandom(opt)
	}
	return nil, fmt.Errorf("unknown otp generator '%s'", name)
}

// randomString generates a cryptographically random string of length
// totalLen drawn from chars.
func randomString(totalLen int, chars string) (string, error) {
	bytes := make([]byte, totalLen)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	for k, v := range bytes {
		bytes[k] = chars[v%byte(len(chars))]
	}
	return string(bytes), nil
}
