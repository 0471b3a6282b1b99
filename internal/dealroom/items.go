package dealroom

import "time"

// MintKeyInfo assigns server-generated IDs to every entry, defaulting a
// missing order to the array index. Client-supplied IDs are discarded.
func MintKeyInfo(items []KeyInfoItem, ids IDProvider) ([]KeyInfoItem, error) {
	minted := make([]KeyInfoItem, len(items))
	for i, item := range items {
		id, err := ids.NewID()
		if err != nil {
			return nil, NewStorageError("save deal room", err)
		}
		out := item
		out.ID = id
		if out.Order == nil {
			order := float64(i)
			out.Order = &order
		}
		minted[i] = out
	}
	return minted, nil
}

// MintExternalLinks mirrors MintKeyInfo for the external links list.
func MintExternalLinks(items []ExternalLinkItem, ids IDProvider) ([]ExternalLinkItem, error) {
	minted := make([]ExternalLinkItem, len(items))
	for i, item := range items {
		id, err := ids.NewID()
		if err != nil {
			return nil, NewStorageError("save deal room", err)
		}
		out := item
		out.ID = id
		if out.Order == nil {
			order := float64(i)
			out.Order = &order
		}
		minted[i] = out
	}
	return minted, nil
}

// ApplyRoomPatch applies a sparse patch in place. Present list fields
// replace the stored list wholesale with freshly minted item IDs; nil fields
// stay untouched.
func ApplyRoomPatch(room *DealRoom, patch RoomPatch, ids IDProvider, now time.Time) error {
	if patch.InvestmentBlurb != nil {
		room.InvestmentBlurb = *patch.InvestmentBlurb
	}
	if patch.InvestmentSummary != nil {
		room.InvestmentSummary = *patch.InvestmentSummary
	}
	if patch.KeyInfo != nil {
		minted, err := MintKeyInfo(*patch.KeyInfo, ids)
		if err != nil {
			return err
		}
		room.KeyInfo = minted
	}
	if patch.ExternalLinks != nil {
		minted, err := MintExternalLinks(*patch.ExternalLinks, ids)
		if err != nil {
			return err
		}
		room.ExternalLinks = minted
	}
	if patch.ClearShowcasePhoto {
		room.ShowcasePhoto = nil
	} else if patch.ShowcasePhoto != nil {
		photo := *patch.ShowcasePhoto
		room.ShowcasePhoto = &photo
	}
	room.UpdatedAt = now
	return nil
}
