package certificate

import (
	"bytes"
	"slices"
)

// Role is a single named role carried by a certificate.
type Role string

// RoleSet is a normalized set of roles: sorted and deduplicated, so its
// canonical encoding is deterministic.
type RoleSet []Role

func NewRoleSet(roles ...Role) RoleSet {
	set := slices.Clone(roles)
	slices.Sort(set)
	return slices.Compact(set)
}

func (s RoleSet) Has(role Role) bool {
	_, found := slices.BinarySearch(s, role)
	return found
}

func (s RoleSet) Equal(other RoleSet) bool {
	return slices.Equal(s, other)
}

// encode serializes the sorted roles into the canonical wire field, each
// role behind its own length prefix so a role name may contain any byte.
func (s RoleSet) encode() []byte {
	buf := new(bytes.Buffer)
	for _, role := range s {
		writeField(buf, []byte(role))
	}
	return buf.Bytes()
}

func decodeRoleSet(field []byte) (RoleSet, error) {
	reader := &wireReader{wire: field}
	var roles []Role
	for reader.offset < len(field) {
		part, err := reader.readField()
		if err != nil {
			return nil, err
		}
		roles = append(roles, Role(part))
	}
	return NewRoleSet(roles...), nil
}
