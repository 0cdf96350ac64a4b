package tools

import "context"

type stopTool struct{}

type stopArgs struct {
	Reason string `json:"reason"`
}

func (t *stopTool) Name() string { return StopTask }

func (t *stopTool) Description() string {
	return "End the extraction. Call when every checklist item is filled, marked Not Applicable, or cannot be found."
}

func (t *stopTool) Schema() Schema {
	return Schema{
		"type": "object",
		"properties": map[string]any{
			"reason": map[string]any{
				"type":        "string",
				"description": "Why the extraction is complete",
			},
		},
		"required":             []string{"reason"},
		"additionalProperties": false,
	}
}

func (t *stopTool) Call(ctx context.Context, args map[string]any) Result {
	var in stopArgs
	if err := decodeArgs(args, &in); err != nil {
		return errorResult("%v", err)
	}
	return Result{
		"stopped": true,
		"reason":  in.Reason,
	}
}
