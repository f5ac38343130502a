package modeljson

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/menta2k/box-annotator/pkg/types"
)

func TestSanitize(t *testing.T) {
	raw := "```json\n{\n  // detected\n  \"objects\": [\n    {\"label\": \"car\", /* best */ \"confidence\": 0.9,},\n  ],\n}\n```"
	require.JSONEq(t, `{"objects":[{"label":"car","confidence":0.9}]}`, Sanitize(raw))
}

func TestSanitizeKeepsURLs(t *testing.T) {
	require.Equal(t, `{"source": "http://example.com/a"}`, Sanitize(`Here you go: {"source": "http://example.com/a"} thanks`))
}

func TestParseProposalsObject(t *testing.T) {
	set := ParseProposals(`Sure! {"objects":[{"label":"car","confidence":0.8,"box":{"x":0.1,"y":0.2,"w":0.3,"h":0.4}}],"description":"street"}`)
	require.Equal(t, "street", set.Description)
	require.Equal(t, []types.Proposal{{
		Label:      "car",
		Confidence: 0.8,
		Box:        types.Box{X: 0.1, Y: 0.2, W: 0.3, H: 0.4},
	}}, set.Objects)
}

func TestParseProposalsArray(t *testing.T) {
	set := ParseProposals("```\n[{\"label\":\"person\",\"confidence\":0.5,\"box\":{\"x\":0,\"y\":0,\"w\":1,\"h\":1}},]\n```")
	require.Len(t, set.Objects, 1)
	require.Equal(t, "person", set.Objects[0].Label)
}

func TestParseProposalsFallbacks(t *testing.T) {
	require.Equal(t, "Model returned non-JSON response", ParseProposals("I see a cat.").Description)
	require.Equal(t, "Failed to parse model response", ParseProposals(`{"objects": "many"}`).Description)
	require.Empty(t, ParseProposals("").Objects)
}
