package core

import (
	"context"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"portresolve/internal/ports"
	"portresolve/internal/types"
)

// BuiltinErrorRegistry is selected when the default registry would
// otherwise require a baseline but none was provided. Every operation
// fails the same way.
type BuiltinErrorRegistry struct{}

func NewBuiltinErrorRegistry() BuiltinErrorRegistry {
	return BuiltinErrorRegistry{}
}

func baselineRequiredError() error {
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg("baseline required")
}

func (BuiltinErrorRegistry) GetPort(context.Context, types.VersionSpec) (*types.PathAndLocation, error) {
	return nil, baselineRequiredError()
}

func (BuiltinErrorRegistry) GetAllPortVersions(context.Context, string) ([]types.Version, error) {
	return nil, baselineRequiredError()
}

func (BuiltinErrorRegistry) GetBaselineVersion(context.Context, string) (*types.Version, error) {
	return nil, baselineRequiredError()
}

func (BuiltinErrorRegistry) AppendAllPortNames(context.Context, *[]string) error {
	return baselineRequiredError()
}

func (BuiltinErrorRegistry) TryAppendAllPortNamesNoNetwork(context.Context, *[]string) (bool, error) {
	return false, baselineRequiredError()
}

var _ ports.RegistryPort = BuiltinErrorRegistry{}
