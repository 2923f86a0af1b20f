package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/deploypilotorg/repochat"
	"github.com/deploypilotorg/repochat/registry"
)

type getTimeArgs struct{}

// GetTimeTool returns the tool definition for get_time.
func GetTimeTool() repochat.Tool {
	return repochat.Tool{
		Name:        "get_time",
		Description: "Get the current date and time.",
		Parameters:  registry.MustSchemaFor[getTimeArgs](),
	}
}

func executeGetTime(_ context.Context, _ json.RawMessage) (*repochat.ToolResult, error) {
	return textResult(time.Now().Format("2006-01-02 15:04:05 MST")), nil
}

type calculateArgs struct {
	Operation string  `json:"operation" jsonschema:"required,enum=add,enum=subtract,enum=multiply,enum=divide" jsonschema_description:"Arithmetic operation to perform"`
	A         float64 `json:"a" jsonschema:"required" jsonschema_description:"First operand"`
	B         float64 `json:"b" jsonschema:"required" jsonschema_description:"Second operand"`
}

// CalculateTool returns the tool definition for calculate.
func CalculateTool() repochat.Tool {
	return repochat.Tool{
		Name:        "calculate",
		Description: "Perform basic arithmetic on two numbers.",
		Parameters:  registry.MustSchemaFor[calculateArgs](),
	}
}

func executeCalculate(_ context.Context, args json.RawMessage) (*repochat.ToolResult, error) {
	var a calculateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return domainError(fmt.Sprintf("invalid arguments: %s", err)), nil
	}

	var result float64
	switch a.Operation {
	case "add":
		result = a.A + a.B
	case "subtract":
		result = a.A - a.B
	case "multiply":
		result = a.A * a.B
	case "divide":
		if a.B == 0 {
			return domainError("division by zero"), nil
		}
		result = a.A / a.B
	default:
		return domainError(fmt.Sprintf("unknown operation %q", a.Operation)), nil
	}
	return textResult(fmt.Sprintf("%g", result)), nil
}
