package diff

import "github.com/agentstation/rirstats/pkg/errors"

// ErrChanged is returned with --exit-code when the files differ.
var ErrChanged = errors.New("merged files differ")
