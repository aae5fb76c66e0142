//go:build sonivox

package main

import _ "github.com/james-see/sonivoxrender/pkg/eas/sonivox"
