package intent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/paygate/types"
)

type staticLister struct {
	records []*types.PaymentRecord
	err     error
}

func (s staticLister) ListPayments(context.Context) ([]*types.PaymentRecord, error) {
	return s.records, s.err
}

func pending(id, merchant, amount string) *types.PaymentRecord {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &types.PaymentRecord{
		PaymentID: id,
		Merchant:  merchant,
		Token:     "0x5425890298aed601595a70AB815c96711a31Bc65",
		Amount:    amount,
		Status:    types.PaymentStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(30 * time.Minute),
	}
}

func TestDescribePayments(t *testing.T) {
	lister := staticLister{records: []*types.PaymentRecord{
		pending("0xaa", "0x1111111111111111111111111111111111111111", "1000000"),
		pending("0xbb", "0x2222222222222222222222222222222222222222", "5"),
	}}
	r := NewResponder(lister, types.NetworkFuji, types.IntentConfig{})

	d, err := r.Describe(context.Background(), "https://pay.example.com")
	require.NoError(t, err)

	assert.Equal(t, DefaultTitle, d.Title)
	assert.Equal(t, "https://pay.example.com", d.BaseURL)
	require.Len(t, d.Actions, 1)

	a := d.Actions[0]
	assert.Equal(t, ActionDynamic, a.Type)
	assert.Equal(t, "/api/gateway", a.Path)
	assert.Equal(t, "fuji", a.Chains.Source)
	require.Len(t, a.Params, 1)
	assert.Equal(t, PaymentParam, a.Params[0].Name)
	assert.True(t, a.Params[0].Required)
	assert.Equal(t, []Option{
		{Label: "0x1111111111111111111111111111111111111111 1000000", Value: "0xaa"},
		{Label: "0x2222222222222222222222222222222222222222 5", Value: "0xbb"},
	}, a.Params[0].Options)
}

func TestDescribeNoPendingPayments(t *testing.T) {
	r := NewResponder(staticLister{}, types.NetworkFuji, types.IntentConfig{})

	d, err := r.Describe(context.Background(), "")
	require.NoError(t, err)

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"options":[]`)
	assert.NotContains(t, string(raw), "baseUrl")
}

func TestDescribeListError(t *testing.T) {
	storeErr := types.NewError(types.ErrStoreError, "scan failed", errors.New("timeout"))
	r := NewResponder(staticLister{err: storeErr}, types.NetworkFuji, types.IntentConfig{})

	_, err := r.Describe(context.Background(), "")
	assert.ErrorIs(t, err, types.StoreError)
}

func TestDescribeDeposit(t *testing.T) {
	r := NewResponder(staticLister{}, types.NetworkBaseSepolia, types.IntentConfig{
		Variant: types.IntentVariantDeposit,
		SupportedTokens: map[string]string{
			"USDC": "0x5425890298aed601595a70AB815c96711a31Bc65",
			"DAI":  "0x6666666666666666666666666666666666666666",
		},
		DepositMerchant: "0x1111111111111111111111111111111111111111",
	})

	d, err := r.Describe(context.Background(), "http://localhost:3000")
	require.NoError(t, err)

	a := d.Actions[0]
	assert.Equal(t, "base-sepolia", a.Chains.Source)
	require.Len(t, a.Params, 2)
	assert.Equal(t, TokenParam, a.Params[0].Name)
	assert.Equal(t, []Option{
		{Label: "DAI", Value: "0x6666666666666666666666666666666666666666"},
		{Label: "USDC", Value: "0x5425890298aed601595a70AB815c96711a31Bc65"},
	}, a.Params[0].Options)
	assert.Equal(t, AmountParam, a.Params[1].Name)
	assert.Equal(t, ParamText, a.Params[1].Type)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", r.DepositMerchant())
}

func TestDescribeInvalidConfig(t *testing.T) {
	r := NewResponder(staticLister{}, types.NetworkFuji, types.IntentConfig{Path: "api/gateway"})

	_, err := r.Describe(context.Background(), "")
	assert.ErrorIs(t, err, types.MetadataValidationError)
}

func validDescriptor() *Descriptor {
	return &Descriptor{
		URL:         DefaultURL,
		Icon:        DefaultIcon,
		Title:       DefaultTitle,
		Description: DefaultDescription,
		Actions: []Action{{
			Type:   ActionDynamic,
			Label:  "Pagos Pendientes",
			Chains: Chains{Source: "fuji"},
			Path:   DefaultPath,
			Params: []Param{{Name: PaymentParam, Label: "pago", Type: ParamSelect, Options: []Option{}}},
		}},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(validDescriptor()))

	cases := map[string]func(*Descriptor){
		"no actions": func(d *Descriptor) { d.Actions = nil },
		"too many actions": func(d *Descriptor) {
			for i := 0; i < 4; i++ {
				d.Actions = append(d.Actions, d.Actions[0])
			}
		},
		"bad url":         func(d *Descriptor) { d.URL = "not a url" },
		"missing title":   func(d *Descriptor) { d.Title = "" },
		"unknown action":  func(d *Descriptor) { d.Actions[0].Type = "transfer" },
		"missing chain":   func(d *Descriptor) { d.Actions[0].Chains.Source = "" },
		"relative path":   func(d *Descriptor) { d.Actions[0].Path = "api" },
		"select no field": func(d *Descriptor) { d.Actions[0].Params[0].Options = nil },
		"empty value": func(d *Descriptor) {
			d.Actions[0].Params[0].Options = []Option{{Label: "x", Value: ""}}
		},
		"duplicate param": func(d *Descriptor) {
			d.Actions[0].Params = append(d.Actions[0].Params, Param{Name: PaymentParam, Label: "again", Type: ParamText})
		},
		"unknown param type": func(d *Descriptor) { d.Actions[0].Params[0].Type = "slider" },
		"options on text": func(d *Descriptor) {
			d.Actions[0].Params = append(d.Actions[0].Params, Param{
				Name: AmountParam, Label: "monto", Type: ParamText, Options: []Option{{Label: "a", Value: "b"}},
			})
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			d := validDescriptor()
			mutate(d)
			assert.ErrorIs(t, Validate(d), types.MetadataValidationError)
		})
	}
}
