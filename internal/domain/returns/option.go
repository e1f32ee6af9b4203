package returns

import (
	"encoding/json"
	"fmt"
)

// OptionKind discriminates the ReturnOption variants.
type OptionKind string

const (
	KindActionable OptionKind = "actionable"
	KindExternal   OptionKind = "external"
)

// ReturnOption is either an ActionableOption or an ExternalOption.
// Only ActionableOption carries a Method, so only it can feed a submission.
type ReturnOption interface {
	Kind() OptionKind
	Title() string
	Action() string
	isReturnOption()
}

// ActionableOption is a selectable fulfillment method.
type ActionableOption struct {
	Method Method
	Label  string
	CTA    string
}

func (ActionableOption) Kind() OptionKind { return KindActionable }
func (o ActionableOption) Title() string { return o.Label }
func (o ActionableOption) Action() string { return o.CTA }
func (ActionableOption) isReturnOption() {}

// MarshalJSON emits the tagged wire form.
func (o ActionableOption) MarshalJSON() ([]byte, error) {
	return json.Marshal(optionWire{
		Kind:  string(KindActionable),
		ID:    string(o.Method),
		Label: o.Label,
		CTA:   o.CTA,
	})
}

// ExternalOption is an informational link, never a submission method.
type ExternalOption struct {
	Label string
	CTA   string
	URL   string
}

func (ExternalOption) Kind() OptionKind { return KindExternal }
func (o ExternalOption) Title() string { return o.Label }
func (o ExternalOption) Action() string { return o.CTA }
func (ExternalOption) isReturnOption() {}

// MarshalJSON emits the tagged wire form.
func (o ExternalOption) MarshalJSON() ([]byte, error) {
	return json.Marshal(optionWire{
		Kind:  string(KindExternal),
		Label: o.Label,
		CTA:   o.CTA,
		URL:   o.URL,
	})
}

type optionWire struct {
	Kind  string `json:"kind"`
	ID    string `json:"id,omitempty"`
	Label string `json:"label"`
	CTA   string `json:"cta"`
	URL   string `json:"url,omitempty"`
}

// DecodeReturnOption parses one option. A missing kind is inferred from
// the presence of url.
func DecodeReturnOption(raw json.RawMessage) (ReturnOption, error) {
	var w optionWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: option: %v", ErrMalformedPayload, err)
	}

	kind := OptionKind(w.Kind)
	if kind == "" {
		kind = KindActionable
		if w.URL != "" {
			kind = KindExternal
		}
	}

	switch kind {
	case KindActionable:
		m := Method(w.ID)
		if !m.Valid() {
			return nil, fmt.Errorf("%w: unsupported return method %q", ErrMalformedPayload, w.ID)
		}
		if err := validate.Var(w.Label, "required"); err != nil {
			return nil, fmt.Errorf("%w: option %q has no label", ErrMalformedPayload, w.ID)
		}
		return ActionableOption{Method: m, Label: w.Label, CTA: w.CTA}, nil
	case KindExternal:
		if err := validate.Var(w.URL, "required,http_url"); err != nil {
			return nil, fmt.Errorf("%w: external option url %q", ErrMalformedPayload, w.URL)
		}
		return ExternalOption{Label: w.Label, CTA: w.CTA, URL: w.URL}, nil
	default:
		return nil, fmt.Errorf("%w: unknown option kind %q", ErrMalformedPayload, w.Kind)
	}
}

// DecodeReturnOptions parses every option, skipping the ones that fail.
// The skipped errors are returned for logging.
func DecodeReturnOptions(raws []json.RawMessage) ([]ReturnOption, []error) {
	out := make([]ReturnOption, 0, len(raws))
	var skipped []error
	for _, raw := range raws {
		opt, err := DecodeReturnOption(raw)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		out = append(out, opt)
	}
	return out, skipped
}
