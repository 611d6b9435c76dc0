package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPassKitBasePath(t *testing.T) {
	cases := map[string]string{
		"https://pass.example/wallet/apple":  "/wallet/apple",
		"https://pass.example/wallet/apple/": "/wallet/apple",
		"https://pass.example":               "",
		"::not a url":                        "",
	}
	for raw, expected := range cases {
		assert.Equal(t, expected, passKitBasePath(raw), raw)
	}
}
