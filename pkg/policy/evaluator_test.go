package policy

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mercator-hq/bidguard/pkg/audit"
	"mercator-hq/bidguard/pkg/config"
	"mercator-hq/bidguard/pkg/override"
)

func TestEvaluate_Decisions(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.EthicsConfig
		list       *List
		req        Request
		wantResult audit.Result
		wantEvent  audit.EventType
		wantReason string
		wantStop   bool
	}{
		{
			name:       "disabled allows everyone",
			cfg:        config.EthicsConfig{Enabled: false},
			list:       listWith(ModeDenylist, true, []string{"Shady Co"}, nil),
			req:        Request{Entity: "Shady Co", Category: Supplier},
			wantResult: audit.ResultAllowed,
			wantEvent:  audit.EventCheck,
			wantReason: "disabled",
		},
		{
			name:       "denylist miss",
			cfg:        config.EthicsConfig{Enabled: true},
			list:       listWith(ModeDenylist, false, []string{"Shady Co"}, nil),
			req:        Request{Entity: "Honest Supply", Category: Supplier},
			wantResult: audit.ResultAllowed,
			wantEvent:  audit.EventCheck,
			wantReason: "not on denylist",
		},
		{
			name:       "denylist hit is case insensitive",
			cfg:        config.EthicsConfig{Enabled: true},
			list:       listWith(ModeDenylist, false, []string{"Shady Co"}, nil),
			req:        Request{Entity: "  shady   CO ", Category: Subcontractor},
			wantResult: audit.ResultBlocked,
			wantEvent:  audit.EventCheck,
			wantReason: "on denylist",
		},
		{
			name:       "manufacturer matches on first word",
			cfg:        config.EthicsConfig{Enabled: true},
			list:       listWith(ModeDenylist, false, []string{"Acme"}, nil),
			req:        Request{Entity: "ACME Industrial Ltd", Category: Manufacturer},
			wantResult: audit.ResultBlocked,
			wantEvent:  audit.EventCheck,
			wantReason: "on denylist",
		},
		{
			name:       "supplier needs the full name",
			cfg:        config.EthicsConfig{Enabled: true},
			list:       listWith(ModeDenylist, false, []string{"Acme"}, nil),
			req:        Request{Entity: "Acme Industrial Ltd", Category: Supplier},
			wantResult: audit.ResultAllowed,
			wantEvent:  audit.EventCheck,
			wantReason: "not on denylist",
		},
		{
			name:       "manufacturer first word does not match a longer entry",
			cfg:        config.EthicsConfig{Enabled: true},
			list:       listWith(ModeDenylist, false, []string{"General Electric"}, nil),
			req:        Request{Entity: "General Motors Sealant", Category: Manufacturer},
			wantResult: audit.ResultAllowed,
			wantEvent:  audit.EventCheck,
			wantReason: "not on denylist",
		},
		{
			name:       "manufacturer strict allowlist needs a whole entry",
			cfg:        config.EthicsConfig{Enabled: true, Mode: "allowlist", StrictMode: true},
			list:       listWith(ModeAllowlist, true, nil, []string{"General Electric"}),
			req:        Request{Entity: "General Dynamics", Category: Manufacturer},
			wantResult: audit.ResultRejected,
			wantEvent:  audit.EventCheck,
			wantReason: "not on allowlist (hard-stop)",
			wantStop:   true,
		},
		{
			name:       "manufacturer first word on allowlist",
			cfg:        config.EthicsConfig{Enabled: true, Mode: "allowlist"},
			list:       listWith(ModeAllowlist, false, nil, []string{"General"}),
			req:        Request{Entity: "General Dynamics", Category: Manufacturer},
			wantResult: audit.ResultAllowed,
			wantEvent:  audit.EventCheck,
			wantReason: "on allowlist",
		},
		{
			name:       "allowlist hit",
			cfg:        config.EthicsConfig{Enabled: true, Mode: "allowlist"},
			list:       listWith(ModeAllowlist, false, nil, []string{"Trusted Build"}),
			req:        Request{Entity: "trusted build", Category: Subcontractor},
			wantResult: audit.ResultAllowed,
			wantEvent:  audit.EventCheck,
			wantReason: "on allowlist",
		},
		{
			name:       "allowlist miss",
			cfg:        config.EthicsConfig{Enabled: true, Mode: "allowlist"},
			list:       listWith(ModeAllowlist, false, nil, []string{"Trusted Build"}),
			req:        Request{Entity: "Stranger LLC", Category: Subcontractor},
			wantResult: audit.ResultRejected,
			wantEvent:  audit.EventCheck,
			wantReason: "not on allowlist",
		},
		{
			name:       "allowlist strict miss is a hard-stop",
			cfg:        config.EthicsConfig{Enabled: true, Mode: "allowlist", StrictMode: true},
			list:       listWith(ModeAllowlist, true, nil, []string{"Trusted Build"}),
			req:        Request{Entity: "Stranger LLC", Category: Subcontractor},
			wantResult: audit.ResultRejected,
			wantEvent:  audit.EventCheck,
			wantReason: "not on allowlist (hard-stop)",
			wantStop:   true,
		},
		{
			name:       "denylist strict hit is a hard-stop",
			cfg:        config.EthicsConfig{Enabled: true, StrictMode: true},
			list:       listWith(ModeDenylist, true, []string{"Shady Co"}, nil),
			req:        Request{Entity: "Shady Co", Category: Supplier},
			wantResult: audit.ResultBlocked,
			wantEvent:  audit.EventCheck,
			wantReason: "on denylist (hard-stop)",
			wantStop:   true,
		},
		{
			name: "emergency mode allows a denied entity",
			cfg: config.EthicsConfig{
				Enabled:       true,
				StrictMode:    true,
				EmergencyMode: config.EmergencyModeConfig{Active: true, Reason: "storm repairs"},
			},
			list:       listWith(ModeDenylist, true, []string{"Shady Co"}, nil),
			req:        Request{Entity: "Shady Co", Category: Supplier},
			wantResult: audit.ResultAllowed,
			wantEvent:  audit.EventBypass,
			wantReason: "emergency override: storm repairs",
		},
		{
			name: "bypass with reason",
			cfg: config.EthicsConfig{
				Enabled: true,
				Bypass: config.BypassConfig{
					Enabled:    true,
					Categories: config.BypassCategories{Supplier: true},
				},
			},
			list:       listWith(ModeDenylist, false, []string{"Shady Co"}, nil),
			req:        Request{Entity: "Shady Co", Category: Supplier, BypassReason: " sole source ", AuthorizedBy: "pm"},
			wantResult: audit.ResultAllowed,
			wantEvent:  audit.EventBypass,
			wantReason: "sole source",
		},
		{
			name: "bypass without reason is ignored",
			cfg: config.EthicsConfig{
				Enabled: true,
				Bypass: config.BypassConfig{
					Enabled:    true,
					Categories: config.BypassCategories{Supplier: true},
				},
			},
			list:       listWith(ModeDenylist, false, []string{"Shady Co"}, nil),
			req:        Request{Entity: "Shady Co", Category: Supplier, BypassReason: "   "},
			wantResult: audit.ResultBlocked,
			wantEvent:  audit.EventCheck,
			wantReason: "on denylist",
		},
		{
			name: "bypass for another category is ignored",
			cfg: config.EthicsConfig{
				Enabled: true,
				Bypass: config.BypassConfig{
					Enabled:    true,
					Categories: config.BypassCategories{Manufacturer: true},
				},
			},
			list:       listWith(ModeDenylist, false, []string{"Shady Co"}, nil),
			req:        Request{Entity: "Shady Co", Category: Supplier, BypassReason: "sole source"},
			wantResult: audit.ResultBlocked,
			wantEvent:  audit.EventCheck,
			wantReason: "on denylist",
		},
		{
			name: "bypass needs the global switch",
			cfg: config.EthicsConfig{
				Enabled: true,
				Bypass: config.BypassConfig{
					Categories: config.BypassCategories{Supplier: true},
				},
			},
			list:       listWith(ModeDenylist, false, []string{"Shady Co"}, nil),
			req:        Request{Entity: "Shady Co", Category: Supplier, BypassReason: "sole source"},
			wantResult: audit.ResultBlocked,
			wantEvent:  audit.EventCheck,
			wantReason: "on denylist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.cfg, tt.list)

			d, err := f.eval.Evaluate(context.Background(), tt.req)
			if tt.wantStop {
				var hs *HardStopError
				if !errors.As(err, &hs) {
					t.Fatalf("expected HardStopError, got %v", err)
				}
				if !errors.Is(err, ErrPolicyHardStop) {
					t.Error("HardStopError should match ErrPolicyHardStop")
				}
				if hs.Result != tt.wantResult {
					t.Errorf("hard-stop result = %s, want %s", hs.Result, tt.wantResult)
				}
			} else if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}

			if d.Result != tt.wantResult {
				t.Errorf("Result = %s, want %s", d.Result, tt.wantResult)
			}
			if d.EventType != tt.wantEvent {
				t.Errorf("EventType = %s, want %s", d.EventType, tt.wantEvent)
			}
			if d.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", d.Reason, tt.wantReason)
			}
			if d.HardStop != tt.wantStop {
				t.Errorf("HardStop = %v, want %v", d.HardStop, tt.wantStop)
			}

			entries := f.entries(t)
			if len(entries) != 1 {
				t.Fatalf("expected exactly one audit entry, got %d", len(entries))
			}
			e := entries[0]
			if e.Result != d.Result || e.EventType != d.EventType || e.Reason != d.Reason {
				t.Errorf("audit entry %+v does not match decision %+v", e, d)
			}
			if e.Category != string(tt.req.Category) {
				t.Errorf("audit category = %q, want %q", e.Category, tt.req.Category)
			}
		})
	}
}

func TestEvaluate_OverrideRecords(t *testing.T) {
	cfg := config.EthicsConfig{
		Enabled: true,
		Bypass: config.BypassConfig{
			Enabled:    true,
			Categories: config.BypassCategories{Subcontractor: true},
		},
	}
	f := newFixture(t, cfg, listWith(ModeDenylist, false, []string{"Shady Co"}, nil))

	d, err := f.eval.Evaluate(context.Background(), Request{
		Entity:       "Shady Co",
		Category:     Subcontractor,
		BypassReason: "only crane in county",
		AuthorizedBy: "j.ortiz",
		BidID:        "bid-7",
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if d.Override == nil || d.Override.ID == "" {
		t.Fatalf("expected a stored override record, got %+v", d.Override)
	}

	recs, err := f.overrides.List(context.Background(), override.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 override record, got %d", len(recs))
	}
	r := recs[0]
	if r.Kind != override.KindBypass || r.AuthorizedBy != "j.ortiz" || r.BidID != "bid-7" || r.Reason != "only crane in county" {
		t.Errorf("unexpected override record %+v", r)
	}

	e := f.entries(t)[0]
	if e.Actor != "j.ortiz" || e.BidID != "bid-7" {
		t.Errorf("audit entry should carry actor and bid, got %+v", e)
	}
}

func TestEvaluate_BypassWithoutApprover(t *testing.T) {
	cfg := config.EthicsConfig{
		Enabled: true,
		Bypass: config.BypassConfig{
			Enabled:    true,
			Categories: config.BypassCategories{Supplier: true},
		},
	}
	f := newFixture(t, cfg, listWith(ModeDenylist, false, []string{"Shady Co"}, nil))

	d, err := f.eval.Evaluate(context.Background(), Request{
		Entity:       "Shady Co",
		Category:     Supplier,
		BypassReason: "sole source",
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if d.Override.AuthorizedBy != "unspecified" {
		t.Errorf("AuthorizedBy = %q, want unspecified", d.Override.AuthorizedBy)
	}
	if e := f.entries(t)[0]; e.Actor != "unspecified" {
		t.Errorf("audit actor = %q, want unspecified", e.Actor)
	}
}

func TestEvaluate_EmergencyRecordsOverride(t *testing.T) {
	cfg := config.EthicsConfig{
		Enabled:       true,
		EmergencyMode: config.EmergencyModeConfig{Active: true, Reason: "flood"},
	}
	f := newFixture(t, cfg, nil)

	for _, name := range []string{"A Corp", "B Corp"} {
		if _, err := f.eval.Evaluate(context.Background(), Request{Entity: name, Category: Supplier}); err != nil {
			t.Fatal(err)
		}
	}

	recs, _ := f.overrides.List(context.Background(), override.Filter{Kind: override.KindEmergency})
	if len(recs) != 2 {
		t.Fatalf("expected one emergency record per use, got %d", len(recs))
	}
	if recs[0].AuthorizedBy != "emergency_mode" {
		t.Errorf("AuthorizedBy = %q", recs[0].AuthorizedBy)
	}
}

func TestEvaluate_DenylistedNeverAllowedWithoutOverride(t *testing.T) {
	names := []string{"Shady Co", "Bad Actor Inc", "Acme"}
	for _, strict := range []bool{false, true} {
		for _, cat := range Categories {
			f := newFixture(t, config.EthicsConfig{Enabled: true, StrictMode: strict},
				listWith(ModeDenylist, strict, names, nil))
			for _, n := range names {
				d, _ := f.eval.Evaluate(context.Background(), Request{
					Entity:       strings.ToUpper(n),
					Category:     cat,
					BypassReason: "bypass is off",
				})
				if d.Allowed() {
					t.Errorf("strict=%v %s %q was allowed", strict, cat, n)
				}
			}
		}
	}
}

func TestEvaluate_InvalidRequests(t *testing.T) {
	f := newFixture(t, config.EthicsConfig{Enabled: true}, nil)

	for _, req := range []Request{
		{Entity: "  ", Category: Supplier},
		{Entity: "Someone", Category: "Vendor"},
	} {
		if _, err := f.eval.Evaluate(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("Evaluate(%+v) error = %v, want ErrInvalidRequest", req, err)
		}
	}
	if n := len(f.entries(t)); n != 0 {
		t.Errorf("invalid requests should not be audited, got %d entries", n)
	}
}

func TestEvaluate_OversizedBypassReasonLeavesNoTrace(t *testing.T) {
	cfg := config.EthicsConfig{
		Enabled: true,
		Bypass: config.BypassConfig{
			Enabled:    true,
			Categories: config.BypassCategories{Supplier: true},
		},
	}
	f := newFixture(t, cfg, listWith(ModeDenylist, false, []string{"Shady Co"}, nil))

	_, err := f.eval.Evaluate(context.Background(), Request{
		Entity:       "Shady Co",
		Category:     Supplier,
		BypassReason: strings.Repeat("r", audit.MaxFieldLength+1),
	})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	recs, _ := f.overrides.List(context.Background(), override.Filter{})
	if len(recs) != 0 || len(f.entries(t)) != 0 {
		t.Errorf("rejected request left %d overrides and %d audit entries", len(recs), len(f.entries(t)))
	}
}

func TestEvaluate_AuditFailureReturnsNoDecision(t *testing.T) {
	eval, err := NewEvaluator(Options{
		Config:    config.EthicsConfig{Enabled: true, Mode: "denylist"},
		Audit:     &failingSink{},
		Overrides: override.NewMemoryStore(),
		Now:       fixedClock,
	})
	if err != nil {
		t.Fatal(err)
	}

	d, err := eval.Evaluate(context.Background(), Request{Entity: "Honest Supply", Category: Supplier})
	if err == nil {
		t.Fatal("expected an error when the audit write fails")
	}
	if d.Result != "" {
		t.Errorf("expected no decision, got %+v", d)
	}
}

func TestEvaluate_OverrideFailureIsNotAudited(t *testing.T) {
	sink := audit.NewMemorySink(fixedClock)
	eval, err := NewEvaluator(Options{
		Config: config.EthicsConfig{
			Enabled:       true,
			Mode:          "denylist",
			EmergencyMode: config.EmergencyModeConfig{Active: true, Reason: "outage"},
		},
		Audit:     sink,
		Overrides: &failingStore{},
		Now:       fixedClock,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := eval.Evaluate(context.Background(), Request{Entity: "Anyone", Category: Supplier}); err == nil {
		t.Fatal("expected an error when the override store fails")
	}
	if sink.Len() != 0 {
		t.Errorf("no audit entry should be written, got %d", sink.Len())
	}
}

func TestHardStopError_HaltReason(t *testing.T) {
	err := &HardStopError{Entity: "Stranger LLC", Category: Subcontractor, Result: audit.ResultRejected, Reason: "not on allowlist"}
	want := "Subcontractor Stranger LLC rejected (not on allowlist)"
	if got := err.HaltReason(); got != want {
		t.Errorf("HaltReason() = %q, want %q", got, want)
	}
	if !strings.HasPrefix(err.Error(), "policy hard-stop: ") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestNewEvaluator_RequiresSinks(t *testing.T) {
	if _, err := NewEvaluator(Options{Overrides: override.NewMemoryStore()}); err == nil {
		t.Error("expected error without an audit sink")
	}
	if _, err := NewEvaluator(Options{Audit: audit.NewMemorySink(nil)}); err == nil {
		t.Error("expected error without an override store")
	}
}
