package decl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateChild(t *testing.T) {
	cases := []struct {
		name  string
		child ChildDecl
		field string
		kind  FieldErrorKind
	}{
		{"valid", ChildDecl{Name: "logger", URL: "test:///logger"}, "", 0},
		{"empty name", ChildDecl{URL: "test:///x"}, "name", FieldEmpty},
		{"bad name chars", ChildDecl{Name: "Logger!", URL: "test:///x"}, "name", FieldInvalid},
		{"long name", ChildDecl{Name: strings.Repeat("a", 101), URL: "test:///x"}, "name", FieldTooLong},
		{"empty url", ChildDecl{Name: "x"}, "url", FieldEmpty},
		{"bad url", ChildDecl{Name: "x", URL: "no-scheme"}, "url", FieldInvalid},
		{"long url", ChildDecl{Name: "x", URL: "test:///" + strings.Repeat("a", 4096)}, "url", FieldTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateChild(tc.child)
			if tc.field == "" {
				assert.NoError(t, err)
				return
			}
			var list ErrorList
			require.ErrorAs(t, err, &list)
			require.Len(t, list, 1)
			assert.Equal(t, tc.field, list[0].Field)
			assert.Equal(t, tc.kind, list[0].Kind)
		})
	}
}

func TestValidateRejectsDuplicateChildren(t *testing.T) {
	d := &ComponentDecl{
		Children: []ChildDecl{
			{Name: "a", URL: "test:///a"},
			{Name: "a", URL: "test:///a2"},
		},
	}
	var list ErrorList
	require.ErrorAs(t, Validate(d), &list)
	require.Len(t, list, 1)
	assert.Equal(t, FieldDuplicate, list[0].Kind)
}

func TestValidateOfferTargetMustExist(t *testing.T) {
	d := &ComponentDecl{
		Children: []ChildDecl{{Name: "a", URL: "test:///a"}},
		Offers: []OfferDecl{
			OfferProtocolDecl{
				Source:     Source{Kind: SourceSelf},
				SourcePath: "/svc/echo",
				Target:     OfferTarget{Kind: OfferTargetChild, Name: "missing"},
				TargetPath: "/svc/echo",
			},
		},
	}
	var list ErrorList
	require.ErrorAs(t, Validate(d), &list)
	require.Len(t, list, 1)
	assert.Equal(t, InvalidChildRef, list[0].Kind)
	assert.Equal(t, "target", list[0].Field)

	// Same offer aimed at a declared collection is fine.
	d.Collections = []CollectionDecl{{Name: "coll", Durability: DurabilityTransient}}
	d.Offers = []OfferDecl{
		OfferProtocolDecl{
			Source:     Source{Kind: SourceSelf},
			SourcePath: "/svc/echo",
			Target:     OfferTarget{Kind: OfferTargetCollection, Name: "coll"},
			TargetPath: "/svc/echo",
		},
	}
	assert.NoError(t, Validate(d))
}

func TestValidateOfferSourceChildRef(t *testing.T) {
	d := &ComponentDecl{
		Children: []ChildDecl{{Name: "a", URL: "test:///a"}},
		Offers: []OfferDecl{
			OfferRunnerDecl{
				Source:     Source{Kind: SourceChild, Child: "nope"},
				SourceName: "elf",
				Target:     OfferTarget{Kind: OfferTargetChild, Name: "a"},
				TargetName: "elf",
			},
		},
	}
	var list ErrorList
	require.ErrorAs(t, Validate(d), &list)
	require.Len(t, list, 1)
	assert.Equal(t, InvalidChildRef, list[0].Kind)
	assert.Equal(t, "source", list[0].Field)
}

func TestValidatePaths(t *testing.T) {
	d := &ComponentDecl{
		Uses: []UseDecl{
			UseProtocolDecl{SourcePath: "relative/path", TargetPath: "/svc/x"},
			UseDirectoryDecl{SourcePath: "/data/", TargetPath: "/data"},
		},
	}
	var list ErrorList
	require.ErrorAs(t, Validate(d), &list)
	require.Len(t, list, 2)
	for _, e := range list {
		assert.Equal(t, FieldInvalid, e.Kind)
		assert.Equal(t, "source_path", e.Field)
	}
}

func TestValidateAcceptsRealisticDecl(t *testing.T) {
	d := &ComponentDecl{
		Program: map[string]string{"binary": "bin/system"},
		Uses: []UseDecl{
			UseProtocolDecl{Source: Source{Kind: SourceParent}, SourcePath: "/svc/log", TargetPath: "/svc/log"},
			UseStorageDecl{Type: StorageData, TargetPath: "/data"},
			UseRunnerDecl{SourceName: "wasm"},
		},
		Exposes: []ExposeDecl{
			ExposeProtocolDecl{Source: Source{Kind: SourceSelf}, SourcePath: "/svc/sys", TargetPath: "/svc/sys"},
		},
		Offers: []OfferDecl{
			OfferProtocolDecl{
				Source:     Source{Kind: SourceParent},
				SourcePath: "/svc/log",
				Target:     OfferTarget{Kind: OfferTargetChild, Name: "logger"},
				TargetPath: "/svc/log",
			},
		},
		Storage:     []StorageDecl{{Name: "data", Source: Source{Kind: SourceSelf}, SourcePath: "/minfs"}},
		Runners:     []RunnerDecl{{Name: "wasm", Source: Source{Kind: SourceSelf}, SourcePath: "/svc/runner"}},
		Children:    []ChildDecl{{Name: "logger", URL: "test:///logger", Startup: StartupEager}},
		Collections: []CollectionDecl{{Name: "workers", Durability: DurabilityTransient}},
	}
	require.NoError(t, Validate(d))
}
