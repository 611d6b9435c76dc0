package google

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/walletobjects/v1"
)

func remoteObject() *walletobjects.GenericObject {
	return &walletobjects.GenericObject{
		Id:        "issuer.obj",
		ClassId:   "issuer.student_pass",
		CardTitle: localized("Universidad"),
		Header:    localized("Ana"),
		Subheader: nil,
		Logo:      image("https://cdn.example/logo.png", "LOGO_IMAGE_DESCRIPTION"),
		HeroImage: &walletobjects.Image{},
		TextModulesData: []*walletobjects.TextModuleData{
			{Id: "primaryLeft", Header: "Total", Body: "100"},
			{Id: "primaryRight", Header: "Estado", Body: "Due"},
		},
		LinksModuleData: &walletobjects.LinksModuleData{
			Uris: []*walletobjects.Uri{
				{Id: "payment", Uri: "https://pay.example/old", Description: "Pagar"},
				{Id: "calendar", Uri: "https://cal.example", Description: "Calendario"},
			},
		},
		HexBackgroundColor: "#000000",
	}
}

func TestMergeUpdateOverwritesPatchedFields(t *testing.T) {
	patch := UpdateProps{
		CardTitle: "Universidad Nueva",
		Subheader: "ignored, no remote container",
		LogoURI:   "https://cdn.example/logo2.png",
		HeroURI:   "https://cdn.example/hero.png",
		TextModulesData: []TextModule{
			{ID: "primaryLeft", Body: "250"},
			{ID: "extra", Body: "not added"},
		},
		LinksModuleData: []LinkModule{{ID: "payment", URI: "https://pay.example/new"}},
	}

	merged := MergeUpdate(remoteObject(), patch)

	assert.Equal(t, "Universidad Nueva", merged.CardTitle.DefaultValue.Value)
	assert.Equal(t, "Ana", merged.Header.DefaultValue.Value)
	assert.Nil(t, merged.Subheader)
	assert.Equal(t, "https://cdn.example/logo2.png", merged.Logo.SourceUri.Uri)
	assert.Nil(t, merged.HeroImage.SourceUri)
	require.Len(t, merged.TextModulesData, 2)
	assert.Equal(t, "250", merged.TextModulesData[0].Body)
	assert.Equal(t, "Total", merged.TextModulesData[0].Header)
	assert.Equal(t, "Due", merged.TextModulesData[1].Body)
	require.Len(t, merged.LinksModuleData.Uris, 2)
	assert.Equal(t, "https://pay.example/new", merged.LinksModuleData.Uris[0].Uri)
	assert.Equal(t, "https://cal.example", merged.LinksModuleData.Uris[1].Uri)
	assert.Equal(t, "#000000", merged.HexBackgroundColor)
}

func TestMergeUpdateIsIdempotent(t *testing.T) {
	patch := UpdateProps{
		Header:          "Luis",
		TextModulesData: []TextModule{{ID: "primaryRight", Body: "Paid"}},
		LinksModuleData: []LinkModule{{ID: "calendar", URI: "https://cal.example/2025"}},
	}
	once := MergeUpdate(remoteObject(), patch)
	twice := MergeUpdate(once, patch)
	assert.Equal(t, once, twice)
}

func TestMergeUpdatePreservesUntouchedModules(t *testing.T) {
	patch := UpdateProps{TextModulesData: []TextModule{{ID: "primaryLeft", Body: ""}}}
	merged := MergeUpdate(remoteObject(), patch)
	assert.Equal(t, "100", merged.TextModulesData[0].Body)
	assert.Equal(t, "Due", merged.TextModulesData[1].Body)
}

func TestMergeUpdateDoesNotMutateRemote(t *testing.T) {
	remote := remoteObject()
	snapshot := remoteObject()
	_ = MergeUpdate(remote, UpdateProps{
		CardTitle:       "X",
		LogoURI:         "https://cdn.example/x.png",
		TextModulesData: []TextModule{{ID: "primaryLeft", Body: "1"}},
		LinksModuleData: []LinkModule{{ID: "payment", URI: "https://x"}},
	})
	assert.Equal(t, snapshot, remote)
}

func TestMergeUpdateEmptyPatchKeepsRemote(t *testing.T) {
	assert.Equal(t, remoteObject(), MergeUpdate(remoteObject(), UpdateProps{}))
	assert.Nil(t, MergeUpdate(nil, UpdateProps{Header: "x"}))
}
