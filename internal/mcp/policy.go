package mcp

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Policy controls which tools an MCP client may call.
type Policy struct {
	Version       int      `yaml:"version"`
	DefaultAction string   `yaml:"default_action"`
	DeniedTools   []string `yaml:"denied_tools"`
	AllowedTools  []string `yaml:"allowed_tools"`
}

// PolicyFileName is the name of the policy file inside the vault home.
const PolicyFileName = "mcp-policy.yaml"

// Policy action constants
const (
	ActionAllow = "allow"
	ActionDeny  = "deny"
)

// maxPolicySize bounds the policy file read.
const maxPolicySize = 64 * 1024

// ErrPolicyNotFound is returned when no policy file exists
var ErrPolicyNotFound = errors.New("MCP policy file not found")

// ErrPolicyInsecure is returned when policy file has insecure permissions
var ErrPolicyInsecure = errors.New("MCP policy file has insecure permissions")

// ErrPolicySymlink is returned when policy file is a symlink
var ErrPolicySymlink = errors.New("MCP policy file is a symlink")

// ErrPolicyNotOwnedByUser is returned when policy file is not owned by current user
var ErrPolicyNotOwnedByUser = errors.New("MCP policy file not owned by current user")

// ErrToolDenied is returned by a tool call the policy does not allow.
var ErrToolDenied = errors.New("tool denied by MCP policy")

// readOnlyTools are allowed when no policy file is present.
var readOnlyTools = []string{"task_list", "note_list", "note_get", "activity_list", "goal_get"}

// DefaultPolicy is used when the vault home has no policy file: read-only
// tools are allowed, anything that mutates the vault is denied.
func DefaultPolicy() *Policy {
	return &Policy{
		Version:       1,
		DefaultAction: ActionDeny,
		AllowedTools:  append([]string(nil), readOnlyTools...),
	}
}

// LoadPolicy loads the MCP policy from dir. The file must be a regular
// file (not a symlink) with 0600 permissions owned by the current user.
// Checks run on the opened descriptor.
func LoadPolicy(dir string) (*Policy, error) {
	f, err := openPolicyFile(filepath.Join(dir, PolicyFileName))
	if err != nil {
		if errors.Is(err, ErrPolicyNotFound) || errors.Is(err, ErrPolicySymlink) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to open policy file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat policy file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: not a regular file", ErrPolicyInsecure)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		return nil, fmt.Errorf("%w: %o (expected 0600)", ErrPolicyInsecure, perm)
	}
	if err := checkFileOwnership(info); err != nil {
		return nil, err
	}

	content, err := io.ReadAll(io.LimitReader(f, maxPolicySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var policy Policy
	if err := yaml.Unmarshal(content, &policy); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	if policy.DefaultAction == "" {
		policy.DefaultAction = ActionDeny
	}
	if err := policy.ValidatePolicy(); err != nil {
		return nil, err
	}
	return &policy, nil
}

// IsToolAllowed checks if a tool may be called. Evaluation order:
// denied_tools, then allowed_tools, then default_action. Patterns are
// globs, so "task_*" covers every task tool.
func (p *Policy) IsToolAllowed(tool string) (allowed bool, reason string) {
	for _, denied := range p.DeniedTools {
		if matchTool(tool, denied) {
			return false, fmt.Sprintf("tool '%s' matches denied pattern '%s'", tool, denied)
		}
	}
	for _, allowed := range p.AllowedTools {
		if matchTool(tool, allowed) {
			return true, ""
		}
	}
	if p.DefaultAction == ActionAllow {
		return true, ""
	}
	return false, fmt.Sprintf("tool '%s' not in allowed_tools list", tool)
}

func matchTool(tool, pattern string) bool {
	if tool == pattern {
		return true
	}
	ok, err := filepath.Match(pattern, tool)
	return err == nil && ok
}

// ValidatePolicy validates the policy configuration
func (p *Policy) ValidatePolicy() error {
	if p.Version != 1 {
		return fmt.Errorf("unsupported policy version: %d", p.Version)
	}
	if p.DefaultAction != ActionDeny && p.DefaultAction != ActionAllow {
		return fmt.Errorf("invalid default_action: %s (must be '%s' or '%s')", p.DefaultAction, ActionDeny, ActionAllow)
	}
	for _, pattern := range append(append([]string(nil), p.DeniedTools...), p.AllowedTools...) {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid tool pattern '%s': %w", pattern, err)
		}
	}
	return nil
}
