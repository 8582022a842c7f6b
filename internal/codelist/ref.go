package codelist

import (
	"fmt"
	"regexp"
)

// Ref identifies a maintainable artefact by agency, id and version.
type Ref struct {
	Agency  string
	ID      string
	Version string
}

func (r Ref) String() string {
	return fmt.Sprintf("%s:%s(%s)", r.Agency, r.ID, r.Version)
}

// refPattern matches "Agency:ID(version)", optionally preceded by a URN
// prefix ending in "=".
var refPattern = regexp.MustCompile(`^(?:.*=)?([A-Za-z0-9_.@-]+):([A-Za-z0-9_@-]+)\(([A-Za-z0-9_.+-]+)\)$`)

// ParseRef parses a structure or codelist reference such as
// "urn:sdmx:org.sdmx.infomodel.codelist.Codelist=ESTAT:CL_GEO(1.0)".
func ParseRef(s string) (Ref, bool) {
	m := refPattern.FindStringSubmatch(s)
	if m == nil {
		return Ref{}, false
	}
	return Ref{Agency: m[1], ID: m[2], Version: m[3]}, true
}
