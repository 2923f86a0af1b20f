package repo

var ClassifyCloneFailure = classifyCloneFailure

// WithLocalSource permits non-https clone sources so tests can clone
// fixture repositories from disk.
func WithLocalSource() Option {
	return func(w *Workspace) { w.allowLocal = true }
}
