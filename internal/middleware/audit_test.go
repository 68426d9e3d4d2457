package middleware

import "testing"

func TestParseRouteInfo(t *testing.T) {
	tests := []struct {
		fullPath   string
		method     string
		wantModule string
		wantAction string
	}{
		{"/api/models/:id", "PUT", "Models", "Update"},
		{"/api/models", "POST", "Models", "Create"},
		{"/api/users/:id", "DELETE", "Users", "Delete"},
		{"/api/billing/cycles", "POST", "Billing", "Create"},
		{"/api/system-logs", "POST", "System Logs", "Create"},
		{"/api/keys/:id", "DELETE", "Keys", "Delete"},
	}

	for _, tt := range tests {
		module, action := parseRouteInfo(tt.fullPath, tt.method)
		if module != tt.wantModule {
			t.Errorf("parseRouteInfo(%q, %q) module = %q, expected %q", tt.fullPath, tt.method, module, tt.wantModule)
		}
		if action != tt.wantAction {
			t.Errorf("parseRouteInfo(%q, %q) action = %q, expected %q", tt.fullPath, tt.method, action, tt.wantAction)
		}
	}
}
