package google

import (
	"google.golang.org/api/walletobjects/v1"
)

// MergeUpdate returns a copy of remote with the patched values applied.
//
// Only containers that already exist on remote are touched: a localized
// string needs a default value, an image needs a source URI, and text or
// link modules are matched by ID. Patch modules with no remote counterpart
// are ignored and empty patch values keep the remote value. remote is not
// modified and re-applying the same patch yields the same object.
func MergeUpdate(remote *walletobjects.GenericObject, patch UpdateProps) *walletobjects.GenericObject {
	if remote == nil {
		return nil
	}
	merged := *remote

	merged.CardTitle = mergeLocalized(remote.CardTitle, patch.CardTitle)
	merged.Header = mergeLocalized(remote.Header, patch.Header)
	merged.Subheader = mergeLocalized(remote.Subheader, patch.Subheader)
	merged.Logo = mergeImage(remote.Logo, patch.LogoURI)
	merged.HeroImage = mergeImage(remote.HeroImage, patch.HeroURI)

	if remote.TextModulesData != nil {
		bodies := make(map[string]string, len(patch.TextModulesData))
		for _, m := range patch.TextModulesData {
			bodies[m.ID] = m.Body
		}
		merged.TextModulesData = make([]*walletobjects.TextModuleData, len(remote.TextModulesData))
		for i, m := range remote.TextModulesData {
			if m == nil {
				continue
			}
			clone := *m
			if body := bodies[m.Id]; body != "" {
				clone.Body = body
			}
			merged.TextModulesData[i] = &clone
		}
	}

	if remote.LinksModuleData != nil {
		links := *remote.LinksModuleData
		if remote.LinksModuleData.Uris != nil {
			uris := make(map[string]string, len(patch.LinksModuleData))
			for _, l := range patch.LinksModuleData {
				uris[l.ID] = l.URI
			}
			links.Uris = make([]*walletobjects.Uri, len(remote.LinksModuleData.Uris))
			for i, u := range remote.LinksModuleData.Uris {
				if u == nil {
					continue
				}
				clone := *u
				if uri := uris[u.Id]; uri != "" {
					clone.Uri = uri
				}
				links.Uris[i] = &clone
			}
		}
		merged.LinksModuleData = &links
	}

	return &merged
}

func mergeLocalized(remote *walletobjects.LocalizedString, value string) *walletobjects.LocalizedString {
	if remote == nil || remote.DefaultValue == nil || value == "" {
		return remote
	}
	clone := *remote
	def := *remote.DefaultValue
	def.Value = value
	clone.DefaultValue = &def
	return &clone
}

func mergeImage(remote *walletobjects.Image, uri string) *walletobjects.Image {
	if remote == nil || remote.SourceUri == nil || uri == "" {
		return remote
	}
	clone := *remote
	source := *remote.SourceUri
	source.Uri = uri
	clone.SourceUri = &source
	return &clone
}
