package repository

import (
	"context"
	"errors"
)

var errBroken = errors.New("store unavailable")

// brokenStore fails every call.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, bool, error) { return "", false, errBroken }
func (brokenStore) Set(context.Context, string, string) error         { return errBroken }
func (brokenStore) Remove(context.Context, string) error              { return errBroken }
