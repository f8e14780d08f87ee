package matsimcfg

import "fmt"

// OverwritePolicy controls what happens to an existing output directory.
type OverwritePolicy string

const (
	FailIfDirectoryExists   OverwritePolicy = "failIfDirectoryExists"
	OverwriteExistingFiles  OverwritePolicy = "overwriteExistingFiles"
	DeleteDirectoryIfExists OverwritePolicy = "deleteDirectoryIfExists"
)

// ParseOverwritePolicy accepts the three MATSim spellings.
func ParseOverwritePolicy(s string) (OverwritePolicy, error) {
	switch p := OverwritePolicy(s); p {
	case FailIfDirectoryExists, OverwriteExistingFiles, DeleteDirectoryIfExists:
		return p, nil
	default:
		return "", fmt.Errorf("unknown overwrite policy %q", s)
	}
}
