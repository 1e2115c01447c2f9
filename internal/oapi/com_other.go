//go:build !windows

package oapi

import "context"

func dialCOM(context.Context, Options) (Automation, error) {
	return nil, ErrUnsupportedPlatform
}
