package handoff

import (
	"encoding/json"
	"fmt"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain"
)

// PayloadKind tags the variant carried by a Payload.
type PayloadKind string

const (
	PayloadNone     PayloadKind = ""
	PayloadContent  PayloadKind = "content"
	PayloadCampaign PayloadKind = "campaign"
	PayloadBrand    PayloadKind = "brand"
	PayloadOpaque   PayloadKind = "opaque"
)

// ContentPayload carries a piece of written content between agents.
type ContentPayload struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Format   string   `json:"format,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// CampaignPayload carries a marketing campaign brief.
type CampaignPayload struct {
	Name     string   `json:"name"`
	Channels []string `json:"channels,omitempty"`
	Audience string   `json:"audience,omitempty"`
	Budget   float64  `json:"budget,omitempty"`
}

// BrandPayload carries brand identity material.
type BrandPayload struct {
	BrandName string   `json:"brand_name"`
	Voice     string   `json:"voice,omitempty"`
	Tagline   string   `json:"tagline,omitempty"`
	Colors    []string `json:"colors,omitempty"`
}

// Payload is the work-in-progress handed from one agent to the next. The
// engine never looks inside it; known kinds are typed so producers and
// consumers agree on shape, and PayloadOpaque passes anything else through.
type Payload struct {
	Kind     PayloadKind
	Content  *ContentPayload
	Campaign *CampaignPayload
	Brand    *BrandPayload
	Opaque   json.RawMessage
}

// ContentData wraps c as a content payload.
func ContentData(c ContentPayload) Payload { return Payload{Kind: PayloadContent, Content: &c} }

// CampaignData wraps c as a campaign payload.
func CampaignData(c CampaignPayload) Payload { return Payload{Kind: PayloadCampaign, Campaign: &c} }

// BrandData wraps b as a brand payload.
func BrandData(b BrandPayload) Payload { return Payload{Kind: PayloadBrand, Brand: &b} }

// OpaqueData wraps raw JSON that the engine should forward untouched.
func OpaqueData(raw json.RawMessage) Payload { return Payload{Kind: PayloadOpaque, Opaque: raw} }

// IsEmpty reports whether no payload was supplied.
func (p Payload) IsEmpty() bool { return p.Kind == PayloadNone }

// Validate checks that exactly the variant named by Kind is populated.
func (p Payload) Validate() error {
	ok := false
	switch p.Kind {
	case PayloadNone:
		ok = p.Content == nil && p.Campaign == nil && p.Brand == nil && p.Opaque == nil
	case PayloadContent:
		ok = p.Content != nil
	case PayloadCampaign:
		ok = p.Campaign != nil
	case PayloadBrand:
		ok = p.Brand != nil
	case PayloadOpaque:
		ok = json.Valid(p.Opaque)
	default:
		return fmt.Errorf("%w: unknown workflow_data kind %q", domain.ErrValidation, p.Kind)
	}
	if !ok {
		return fmt.Errorf("%w: workflow_data does not match kind %q", domain.ErrValidation, p.Kind)
	}
	return nil
}

// Data returns the JSON encoding of the populated variant, or nil.
func (p Payload) Data() (json.RawMessage, error) {
	var v any
	switch p.Kind {
	case PayloadNone:
		return nil, nil
	case PayloadOpaque:
		return p.Opaque, nil
	case PayloadContent:
		v = p.Content
	case PayloadCampaign:
		v = p.Campaign
	case PayloadBrand:
		v = p.Brand
	default:
		return nil, fmt.Errorf("%w: unknown workflow_data kind %q", domain.ErrValidation, p.Kind)
	}
	return json.Marshal(v)
}

type payloadEnvelope struct {
	Kind PayloadKind     `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MarshalJSON encodes the payload as {"kind": ..., "data": ...}.
func (p Payload) MarshalJSON() ([]byte, error) {
	if p.IsEmpty() {
		return []byte("null"), nil
	}
	data, err := p.Data()
	if err != nil {
		return nil, err
	}
	return json.Marshal(payloadEnvelope{Kind: p.Kind, Data: data})
}

// UnmarshalJSON decodes the envelope form. null and {} yield an empty payload.
func (p *Payload) UnmarshalJSON(b []byte) error {
	*p = Payload{}
	if string(b) == "null" {
		return nil
	}
	var env payloadEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return fmt.Errorf("%w: workflow_data: %v", domain.ErrValidation, err)
	}
	p.Kind = env.Kind
	var target any
	switch env.Kind {
	case PayloadNone:
		return nil
	case PayloadOpaque:
		if len(env.Data) == 0 {
			p.Opaque = json.RawMessage("null")
		} else {
			p.Opaque = append(json.RawMessage(nil), env.Data...)
		}
		return nil
	case PayloadContent:
		p.Content = &ContentPayload{}
		target = p.Content
	case PayloadCampaign:
		p.Campaign = &CampaignPayload{}
		target = p.Campaign
	case PayloadBrand:
		p.Brand = &BrandPayload{}
		target = p.Brand
	default:
		return fmt.Errorf("%w: unknown workflow_data kind %q", domain.ErrValidation, env.Kind)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return fmt.Errorf("%w: workflow_data %s: %v", domain.ErrValidation, env.Kind, err)
	}
	return nil
}
