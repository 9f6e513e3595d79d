package id

import gonanoid "github.com/matoous/go-nanoid/v2"

const (
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz-"
	size     = 21
)

func New() string {
	return gonanoid.MustGenerate(alphabet, size)
}

func Valid(s string) bool {
	if len(s) != size {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		case r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}
