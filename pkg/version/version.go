package version

const (
	versionPlaceholder = "VERSION_PLACEHOLDER"
	commitPlaceholder  = "COMMIT_PLACEHOLDER"
)

var (
	// These values are injected during build - DO NOT MODIFY
	Version   = versionPlaceholder
	CommitSHA = commitPlaceholder
)

// Release returns the injected version and commit. Values that were never
// injected come back empty so the CLI falls back to the module build info.
func Release() (version, commit string) {
	if Version != versionPlaceholder {
		version = Version
	}
	if CommitSHA != commitPlaceholder {
		commit = CommitSHA
	}
	return version, commit
}
