package model

import "testing"

func TestClassifyRole(t *testing.T) {
	cases := map[string]Role{
		"student":      RoleStudent,
		"Student":      RoleStudent,
		"":             RoleStudent,
		"admin":        RoleAdmin,
		"School ADMIN": RoleAdmin,
		"Super Admin":  RoleSuperAdmin,
		"superadmin":   RoleSuperAdmin,
		"guru":         RoleStudent,
	}
	for raw, expect := range cases {
		if got := ClassifyRole(raw); got != expect {
			t.Fatalf("expected %q to classify as %s, got %s", raw, expect, got)
		}
	}
	if RoleStudent.Elevated() {
		t.Fatalf("expected student not elevated")
	}
	if !RoleAdmin.Elevated() || !RoleSuperAdmin.Elevated() {
		t.Fatalf("expected admin roles elevated")
	}
}

func TestNewSessionDefaultsRole(t *testing.T) {
	session := NewSession("s-1", "Ali", "")
	if session.RawRole != "Student" || session.Role != RoleStudent || !session.Authenticated {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestParseView(t *testing.T) {
	if view, ok := ParseView("admin"); !ok || view != ViewAdmin {
		t.Fatalf("expected ADMIN, got %s", view)
	}
	if _, ok := ParseView("settings"); ok {
		t.Fatalf("expected unknown view to fail")
	}
}

func TestFeatureSettingMerge(t *testing.T) {
	title := "New Title"
	base := FeatureSetting{Status: StatusComingSoon, Message: "Soon!"}
	merged := base.Merge(FeaturePatch{Title: &title})
	if merged.Title != "New Title" || merged.Status != StatusComingSoon || merged.Message != "Soon!" {
		t.Fatalf("unexpected merge result %+v", merged)
	}
	if (FeatureSetting{}).EffectiveStatus() != StatusActive {
		t.Fatalf("expected empty status to be Active")
	}
}

func TestParseReportStatus(t *testing.T) {
	for _, status := range []string{"Baru", "Siasatan", "Selesai"} {
		if _, err := ParseReportStatus(status); err != nil {
			t.Fatalf("expected status %s to be valid", status)
		}
	}
	if _, err := ParseReportStatus("Closed"); err == nil {
		t.Fatalf("expected invalid status to error")
	}
}
