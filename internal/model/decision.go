package model

// Decision is the routing outcome for a single file record.
type Decision struct {
	Rule        *Rule      `json:"rule,omitempty"`
	Action      Action     `json:"action"`
	Category    string     `json:"category,omitempty"`
	Destination string     `json:"destination,omitempty"`
	Reason      string     `json:"reason"`
	Candidates  []string   `json:"candidates,omitempty"`
	File        FileRecord `json:"file"`
}

// Matched reports whether any rule matched the file.
func (d Decision) Matched() bool {
	return d.Rule != nil
}

// RuleName returns the winning rule name, or an empty string.
func (d Decision) RuleName() string {
	if d.Rule == nil {
		return ""
	}
	return d.Rule.Name
}
