package client

import (
	"context"

	"github.com/menta2k/box-annotator/pkg/types"
)

// VisionClient is a vision-language model backend.
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	DetectObjects(ctx context.Context, model, prompt, imgB64 string) (*types.ProposalSet, error)
}
