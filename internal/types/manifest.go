package types

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// AssetManifest lists the binary content a lesson or game needs to be usable
// offline. Lessons populate Images/Videos; games additionally carry a Bundle
// and Sounds/Data files.
type AssetManifest struct {
	Bundle string   `json:"bundle,omitempty"`
	Images []string `json:"images,omitempty"`
	Videos []string `json:"videos,omitempty"`
	Sounds []string `json:"sounds,omitempty"`
	Data   []string `json:"data,omitempty"`
}

func (m AssetManifest) URLs() []string {
	urls := make([]string, 0, 1+len(m.Images)+len(m.Videos)+len(m.Sounds)+len(m.Data))
	if m.Bundle != "" {
		urls = append(urls, m.Bundle)
	}
	urls = append(urls, m.Images...)
	urls = append(urls, m.Videos...)
	urls = append(urls, m.Sounds...)
	urls = append(urls, m.Data...)
	return urls
}

func (m AssetManifest) Encode() (datatypes.JSON, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func DecodeManifest(raw datatypes.JSON) (AssetManifest, error) {
	var m AssetManifest
	if len(raw) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return AssetManifest{}, err
	}
	return m, nil
}
