// Package tools implements the operations served to the model: repository
// fetching and reading plus a couple of small utility tools.
package tools

import (
	"errors"

	"github.com/deploypilotorg/repochat"
	"github.com/deploypilotorg/repochat/registry"
	"github.com/deploypilotorg/repochat/repo"
)

// Set binds the tool handlers to one repository workspace.
type Set struct {
	ws *repo.Workspace
}

// NewSet creates a Set over the given workspace.
func NewSet(ws *repo.Workspace) *Set {
	return &Set{ws: ws}
}

// Register adds every tool in the set to the registry.
func (s *Set) Register(r *registry.Registry) error {
	regs := []struct {
		tool    repochat.Tool
		handler registry.Handler
	}{
		{CloneRepositoryTool(), s.executeCloneRepository},
		{ListFilesTool(), s.executeListFiles},
		{ReadFileTool(), s.executeReadFile},
		{FindFilesTool(), s.executeFindFiles},
		{RepoInfoTool(), s.executeRepoInfo},
		{GetTimeTool(), executeGetTime},
		{CalculateTool(), executeCalculate},
	}
	for _, reg := range regs {
		if err := r.Register(reg.tool, reg.handler); err != nil {
			return err
		}
	}
	return nil
}

func domainError(msg string) *repochat.ToolResult {
	return &repochat.ToolResult{
		Content: []repochat.ContentBlock{repochat.TextBlock{Text: msg}},
		IsError: true,
	}
}

func textResult(text string) *repochat.ToolResult {
	return &repochat.ToolResult{
		Content: []repochat.ContentBlock{repochat.TextBlock{Text: text}},
		IsError: false,
	}
}

// recoverDomain maps repository errors to failed results the model can
// react to. Anything unrecognized is a fault and propagates.
func recoverDomain(err error) (*repochat.ToolResult, error) {
	switch {
	case errors.Is(err, repochat.ErrNoRepository):
		return domainError("no repository cloned yet: call clone_repository first"), nil
	case errors.Is(err, repochat.ErrInvalidURL),
		errors.Is(err, repochat.ErrPrivateRepository),
		errors.Is(err, repochat.ErrCloneFailed),
		errors.Is(err, repochat.ErrPathEscape),
		errors.Is(err, repochat.ErrFileNotFound),
		errors.Is(err, repochat.ErrFileTooLarge),
		errors.Is(err, repochat.ErrValidation):
		return domainError(err.Error()), nil
	default:
		return nil, err
	}
}
