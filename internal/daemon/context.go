package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/solvix/draftgate/internal/model"
)

// LoadCaseContext reads the case-context snapshot for a party from the
// parties directory. Snapshots are YAML files named <CODE>.yaml, exported
// there by the accounting-sync job.
func LoadCaseContext(partiesDir, partyCode string) (*model.CaseContext, error) {
	if partyCode == "" || !validID.MatchString(partyCode) {
		return nil, fmt.Errorf("invalid party code %q", partyCode)
	}
	path := filepath.Join(partiesDir, partyCode+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read case context for %s: %w", partyCode, err)
	}
	var cc model.CaseContext
	if err := yaml.Unmarshal(data, &cc); err != nil {
		return nil, fmt.Errorf("parse case context for %s: %w", partyCode, err)
	}
	if cc.Party.CustomerCode == "" {
		cc.Party.CustomerCode = partyCode
	}
	return &cc, nil
}
