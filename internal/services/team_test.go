package services

import (
	"net/http"
	"testing"

	"github.com/taskforge/backend/internal/models"
)

func TestAddMember(t *testing.T) {
	db := testDB(t)
	svc := NewTeamService(db, NewPermissionService(db))

	owner := createUser(t, db, "owner@example.com", models.RoleMember)
	newcomer := createUser(t, db, "newcomer@example.com", models.RoleMember)
	_, team := createProjectTree(t, db, "Apollo", owner)

	member, err := svc.AddMember(owner.ID, rolesOf(models.RoleMember), team.ID, &AddMemberRequest{
		UserID: newcomer.ID,
		Role:   "member",
	})
	if err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}
	if member.UserID != newcomer.ID {
		t.Errorf("UserID = %q, expected %q", member.UserID, newcomer.ID)
	}
	if member.Role != "member" {
		t.Errorf("Role = %q, expected %q", member.Role, "member")
	}
	if member.Email != "newcomer@example.com" {
		t.Errorf("Email = %q, expected %q", member.Email, "newcomer@example.com")
	}
}

func TestAddMember_Duplicate(t *testing.T) {
	db := testDB(t)
	svc := NewTeamService(db, NewPermissionService(db))

	owner := createUser(t, db, "owner@example.com", models.RoleMember)
	other := createUser(t, db, "other@example.com", models.RoleMember)
	_, team := createProjectTree(t, db, "Apollo", owner)
	addMembership(t, db, team.ID, other.ID, models.TeamRoleMember)

	_, err := svc.AddMember(owner.ID, rolesOf(models.RoleMember), team.ID, &AddMemberRequest{
		UserID: other.ID,
	})
	assertStatus(t, err, http.StatusBadRequest)
}

func TestAddMember_ReactivatesSoftDeleted(t *testing.T) {
	db := testDB(t)
	svc := NewTeamService(db, NewPermissionService(db))

	owner := createUser(t, db, "owner@example.com", models.RoleMember)
	returning := createUser(t, db, "returning@example.com", models.RoleMember)
	_, team := createProjectTree(t, db, "Apollo", owner)

	old := addMembership(t, db, team.ID, returning.ID, models.TeamRoleObserver)
	if err := db.Delete(old).Error; err != nil {
		t.Fatalf("failed to soft-delete membership: %v", err)
	}

	member, err := svc.AddMember(owner.ID, rolesOf(models.RoleMember), team.ID, &AddMemberRequest{
		UserID: returning.ID,
		Role:   "lead",
	})
	if err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}

	// Same row, reactivated with the new role.
	if member.ID != old.ID {
		t.Errorf("membership ID = %q, expected reactivated row %q", member.ID, old.ID)
	}
	if member.Role != "lead" {
		t.Errorf("Role = %q, expected %q", member.Role, "lead")
	}

	var count int64
	db.Unscoped().Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ?", team.ID, returning.ID).
		Count(&count)
	if count != 1 {
		t.Errorf("membership row count = %d, expected 1 (no duplicate)", count)
	}
}

func TestAddMember_UnknownUser(t *testing.T) {
	db := testDB(t)
	svc := NewTeamService(db, NewPermissionService(db))

	owner := createUser(t, db, "owner@example.com", models.RoleMember)
	_, team := createProjectTree(t, db, "Apollo", owner)

	_, err := svc.AddMember(owner.ID, rolesOf(models.RoleMember), team.ID, &AddMemberRequest{
		UserID: "no-such-user",
	})
	assertStatus(t, err, http.StatusNotFound)
}

func TestAddMember_Forbidden(t *testing.T) {
	db := testDB(t)
	svc := NewTeamService(db, NewPermissionService(db))

	owner := createUser(t, db, "owner@example.com", models.RoleMember)
	outsider := createUser(t, db, "outsider@example.com", models.RoleMember)
	target := createUser(t, db, "target@example.com", models.RoleMember)
	_, team := createProjectTree(t, db, "Apollo", owner)

	_, err := svc.AddMember(outsider.ID, rolesOf(models.RoleMember), team.ID, &AddMemberRequest{
		UserID: target.ID,
	})
	assertStatus(t, err, http.StatusForbidden)
}

func TestUpdateMember_DemoteLastLead(t *testing.T) {
	db := testDB(t)
	svc := NewTeamService(db, NewPermissionService(db))

	owner := createUser(t, db, "owner@example.com", models.RoleMember)
	_, team := createProjectTree(t, db, "Apollo", owner)

	var ownerMembership models.TeamMember
	db.First(&ownerMembership, "team_id = ? AND user_id = ?", team.ID, owner.ID)

	_, err := svc.UpdateMember(owner.ID, rolesOf(models.RoleMember), team.ID, ownerMembership.ID, &UpdateMemberRequest{
		Role: "member",
	})
	assertStatus(t, err, http.StatusBadRequest)

	// The role must be untouched.
	var after models.TeamMember
	db.First(&after, "id = ?", ownerMembership.ID)
	if after.Role != models.TeamRoleLead {
		t.Errorf("Role = %q, expected unchanged %q", after.Role, models.TeamRoleLead)
	}
}

func TestUpdateMember_DemoteWithSecondLead(t *testing.T) {
	db := testDB(t)
	svc := NewTeamService(db, NewPermissionService(db))

	owner := createUser(t, db, "owner@example.com", models.RoleMember)
	second := createUser(t, db, "second@example.com", models.RoleMember)
	_, team := createProjectTree(t, db, "Apollo", owner)
	secondLead := addMembership(t, db, team.ID, second.ID, models.TeamRoleLead)

	member, err := svc.UpdateMember(owner.ID, rolesOf(models.RoleMember), team.ID, secondLead.ID, &UpdateMemberRequest{
		Role: "member",
	})
	if err != nil {
		t.Fatalf("UpdateMember() error = %v", err)
	}
	if member.Role != "member" {
		t.Errorf("Role = %q, expected %q", member.Role, "member")
	}
}

func TestUpdateMember_InvalidRole(t *testing.T) {
	db := testDB(t)
	svc := NewTeamService(db, NewPermissionService(db))

	owner := createUser(t, db, "owner@example.com", models.RoleMember)
	_, team := createProjectTree(t, db, "Apollo", owner)

	var membership models.TeamMember
	db.First(&membership, "team_id = ?", team.ID)

	_, err := svc.UpdateMember(owner.ID, rolesOf(models.RoleMember), team.ID, membership.ID, &UpdateMemberRequest{
		Role: "boss",
	})
	assertStatus(t, err, http.StatusBadRequest)
}

func TestRemoveMember(t *testing.T) {
	db := testDB(t)
	svc := NewTeamService(db, NewPermissionService(db))

	owner := createUser(t, db, "owner@example.com", models.RoleMember)
	member := createUser(t, db, "member@example.com", models.RoleMember)
	_, team := createProjectTree(t, db, "Apollo", owner)
	membership := addMembership(t, db, team.ID, member.ID, models.TeamRoleMember)

	if err := svc.RemoveMember(owner.ID, rolesOf(models.RoleMember), team.ID, membership.ID); err != nil {
		t.Fatalf("RemoveMember() error = %v", err)
	}

	// Soft-deleted, not gone.
	var active int64
	db.Model(&models.TeamMember{}).Where("id = ?", membership.ID).Count(&active)
	if active != 0 {
		t.Error("membership should no longer be active")
	}
	var total int64
	db.Unscoped().Model(&models.TeamMember{}).Where("id = ?", membership.ID).Count(&total)
	if total != 1 {
		t.Error("membership row should still exist soft-deleted")
	}
}

func TestRemoveMember_ProjectOwnerProtected(t *testing.T) {
	db := testDB(t)
	svc := NewTeamService(db, NewPermissionService(db))

	owner := createUser(t, db, "owner@example.com", models.RoleMember)
	admin := createUser(t, db, "admin@example.com", models.RoleAdmin)
	second := createUser(t, db, "second@example.com", models.RoleMember)
	_, team := createProjectTree(t, db, "Apollo", owner)
	// A second lead so the owner is not also the last lead.
	addMembership(t, db, team.ID, second.ID, models.TeamRoleLead)

	var ownerMembership models.TeamMember
	db.First(&ownerMembership, "team_id = ? AND user_id = ?", team.ID, owner.ID)

	// Even an admin cannot remove the project owner from the team.
	err := svc.RemoveMember(admin.ID, rolesOf(models.RoleAdmin), team.ID, ownerMembership.ID)
	assertStatus(t, err, http.StatusBadRequest)
}

func TestRemoveMember_LastLeadProtected(t *testing.T) {
	db := testDB(t)
	svc := NewTeamService(db, NewPermissionService(db))

	owner := createUser(t, db, "owner@example.com", models.RoleMember)
	lead := createUser(t, db, "lead@example.com", models.RoleMember)
	admin := createUser(t, db, "admin@example.com", models.RoleAdmin)

	// Build a team whose only lead is not the owner, by demoting the owner
	// after promoting the other member.
	_, team := createProjectTree(t, db, "Apollo", owner)
	leadMembership := addMembership(t, db, team.ID, lead.ID, models.TeamRoleLead)

	var ownerMembership models.TeamMember
	db.First(&ownerMembership, "team_id = ? AND user_id = ?", team.ID, owner.ID)
	if _, err := svc.UpdateMember(owner.ID, rolesOf(models.RoleMember), team.ID, ownerMembership.ID, &UpdateMemberRequest{Role: "member"}); err != nil {
		t.Fatalf("demoting owner failed: %v", err)
	}

	err := svc.RemoveMember(admin.ID, rolesOf(models.RoleAdmin), team.ID, leadMembership.ID)
	assertStatus(t, err, http.StatusBadRequest)
}

func TestUpdateTeam(t *testing.T) {
	db := testDB(t)
	svc := NewTeamService(db, NewPermissionService(db))

	owner := createUser(t, db, "owner@example.com", models.RoleMember)
	_, team := createProjectTree(t, db, "Apollo", owner)

	updated, err := svc.UpdateTeam(owner.ID, rolesOf(models.RoleMember), team.ID, &UpdateTeamRequest{
		Name:        "Apollo Core",
		Description: "renamed",
	})
	if err != nil {
		t.Fatalf("UpdateTeam() error = %v", err)
	}
	if updated.Name != "Apollo Core" {
		t.Errorf("Name = %q, expected %q", updated.Name, "Apollo Core")
	}
}

func TestGetTeam_NotFound(t *testing.T) {
	db := testDB(t)
	svc := NewTeamService(db, NewPermissionService(db))

	_, err := svc.GetTeam("no-such-team")
	assertStatus(t, err, http.StatusNotFound)
}
