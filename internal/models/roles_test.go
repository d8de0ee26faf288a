package models

import (
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{"Admin", RoleAdmin, false},
		{"Manager", RoleManager, false},
		{"Member", RoleMember, false},
		{"admin", "", true},
		{"Owner", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseRole(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseRole(%q) should return error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRole(%q) error = %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRole(%q) = %q, expected %q", tt.input, got, tt.want)
		}
	}
}

func TestParseTeamRole(t *testing.T) {
	tests := []struct {
		input   string
		want    TeamRole
		wantErr bool
	}{
		{"lead", TeamRoleLead, false},
		{"member", TeamRoleMember, false},
		{"observer", TeamRoleObserver, false},
		{"Lead", "", true},
		{"guest", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseTeamRole(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTeamRole(%q) should return error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTeamRole(%q) error = %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTeamRole(%q) = %q, expected %q", tt.input, got, tt.want)
		}
	}
}

func TestNewRoleSet(t *testing.T) {
	set := NewRoleSet([]string{"Admin", "Member", "bogus"})

	if !set.Has(RoleAdmin) {
		t.Error("set should contain Admin")
	}
	if !set.Has(RoleMember) {
		t.Error("set should contain Member")
	}
	if set.Has(RoleManager) {
		t.Error("set should not contain Manager")
	}
	if len(set) != 2 {
		t.Errorf("set size = %d, expected 2 (invalid roles dropped)", len(set))
	}
}

func TestRoleSet_Strings(t *testing.T) {
	set := NewRoleSet([]string{"Member", "Admin"})
	got := set.Strings()

	// Strings returns roles in declaration order.
	if len(got) != 2 || got[0] != "Admin" || got[1] != "Member" {
		t.Errorf("Strings() = %v, expected [Admin Member]", got)
	}
}

func TestRoleSet_Empty(t *testing.T) {
	var set RoleSet
	if set.Has(RoleAdmin) {
		t.Error("nil set should contain nothing")
	}
	if got := NewRoleSet(nil).Strings(); len(got) != 0 {
		t.Errorf("empty set Strings() = %v, expected empty", got)
	}
}
