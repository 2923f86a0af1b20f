package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deploypilotorg/repochat"
	"github.com/deploypilotorg/repochat/registry"
)

type cloneRepositoryArgs struct {
	URL string `json:"url" jsonschema:"required" jsonschema_description:"HTTPS URL of the repository, e.g. https://github.com/owner/repo"`
}

// CloneRepositoryTool returns the tool definition for clone_repository.
func CloneRepositoryTool() repochat.Tool {
	return repochat.Tool{
		Name:        "clone_repository",
		Description: "Clone a public repository into the scratch directory, replacing any previously cloned repository.",
		Parameters:  registry.MustSchemaFor[cloneRepositoryArgs](),
	}
}

func (s *Set) executeCloneRepository(ctx context.Context, args json.RawMessage) (*repochat.ToolResult, error) {
	var a cloneRepositoryArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return domainError(fmt.Sprintf("invalid arguments: %s", err)), nil
	}

	h, err := s.ws.Clone(ctx, a.URL)
	if err != nil {
		return recoverDomain(err)
	}
	return textResult(fmt.Sprintf("cloned %s to %s", h.URL, h.Path)), nil
}

type listFilesArgs struct {
	IgnorePatterns []string `json:"ignore_patterns,omitempty" jsonschema_description:"Additional gitignore-style patterns to exclude"`
}

// ListFilesTool returns the tool definition for list_files.
func ListFilesTool() repochat.Tool {
	return repochat.Tool{
		Name:        "list_files",
		Description: "List the files of the cloned repository as sorted paths relative to its root. Git internals and common caches are always excluded.",
		Parameters:  registry.MustSchemaFor[listFilesArgs](),
	}
}

func (s *Set) executeListFiles(ctx context.Context, args json.RawMessage) (*repochat.ToolResult, error) {
	var a listFilesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return domainError(fmt.Sprintf("invalid arguments: %s", err)), nil
	}

	files, err := s.ws.ListFiles(ctx, a.IgnorePatterns)
	if err != nil {
		return recoverDomain(err)
	}
	if len(files) == 0 {
		return textResult("repository contains no files"), nil
	}
	return textResult(strings.Join(files, "\n")), nil
}

type readFileArgs struct {
	Path string `json:"path" jsonschema:"required" jsonschema_description:"File path relative to the repository root"`
}

// ReadFileTool returns the tool definition for read_file.
func ReadFileTool() repochat.Tool {
	return repochat.Tool{
		Name:        "read_file",
		Description: "Read a file from the cloned repository. Large files are truncated with a marker.",
		Parameters:  registry.MustSchemaFor[readFileArgs](),
	}
}

func (s *Set) executeReadFile(ctx context.Context, args json.RawMessage) (*repochat.ToolResult, error) {
	var a readFileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return domainError(fmt.Sprintf("invalid arguments: %s", err)), nil
	}

	res, err := s.ws.ReadFile(ctx, a.Path)
	if err != nil {
		return recoverDomain(err)
	}
	return textResult(res.Content), nil
}

type findFilesArgs struct {
	Pattern string `json:"pattern" jsonschema:"required" jsonschema_description:"Glob pattern matched against relative paths, e.g. **/*.go"`
}

// FindFilesTool returns the tool definition for find_files.
func FindFilesTool() repochat.Tool {
	return repochat.Tool{
		Name:        "find_files",
		Description: "Find repository files matching a glob pattern. Supports ** for recursive matching.",
		Parameters:  registry.MustSchemaFor[findFilesArgs](),
	}
}

func (s *Set) executeFindFiles(ctx context.Context, args json.RawMessage) (*repochat.ToolResult, error) {
	var a findFilesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return domainError(fmt.Sprintf("invalid arguments: %s", err)), nil
	}

	files, err := s.ws.FindFiles(ctx, a.Pattern)
	if err != nil {
		return recoverDomain(err)
	}
	if len(files) == 0 {
		return textResult("no matches found"), nil
	}
	return textResult(strings.Join(files, "\n")), nil
}

type repoInfoArgs struct{}

// RepoInfoTool returns the tool definition for repo_info.
func RepoInfoTool() repochat.Tool {
	return repochat.Tool{
		Name:        "repo_info",
		Description: "Summarize the cloned repository: URL, branch, last commit, file count, and total size.",
		Parameters:  registry.MustSchemaFor[repoInfoArgs](),
	}
}

func (s *Set) executeRepoInfo(ctx context.Context, _ json.RawMessage) (*repochat.ToolResult, error) {
	info, err := s.ws.Info(ctx)
	if err != nil {
		return recoverDomain(err)
	}
	return textResult(fmt.Sprintf(
		"url: %s\nbranch: %s\nlast commit: %s\nfiles: %d\nsize: %d bytes",
		info.URL, info.Branch, info.LastCommit, info.FileCount, info.TotalBytes,
	)), nil
}
