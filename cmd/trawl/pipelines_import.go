package main

import (
	"fmt"

	"github.com/oceanbright/trawl/internal/logger"
	"github.com/oceanbright/trawl/internal/pipeline"
	"github.com/oceanbright/trawl/internal/pipelines/stills"
)

// RegisterPipelines registers every pipeline implementation compiled into the
// CLI binary. Pipeline repository descriptors refer to these names.
func RegisterPipelines(log *logger.Logger) error {
	if err := pipeline.Register(stills.Name, stills.New); err != nil {
		return err
	}

	log.Debug(fmt.Sprintf("registered %d pipeline implementation(s)", len(pipeline.Registered())))
	return nil
}
