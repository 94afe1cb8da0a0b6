package game

import "math/rand"

type mathRand struct{}

func (mathRand) Intn(n int) int { return rand.Intn(n) }
