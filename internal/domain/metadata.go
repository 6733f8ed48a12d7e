package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrMetadataKindMismatch is returned when a transaction's metadata variant
// does not belong to the transaction's kind.
var ErrMetadataKindMismatch = errors.New("metadata does not match transaction kind")

// TxMetadata is the tagged union of per-kind transaction payloads. Each
// variant reports the kind it belongs to.
type TxMetadata interface {
	MetadataKind() TransactionKind
}

// PurchaseMetadata describes a credit package bought through checkout.
type PurchaseMetadata struct {
	PackageType string `json:"package_type"`
	PaymentRef  string `json:"payment_ref,omitempty"`
	AmountPaid  int64  `json:"amount_paid,omitempty"` // minor currency units
}

// UsageMetadata describes a listing paid from personal credits.
type UsageMetadata struct {
	ItemID            string `json:"item_id,omitempty"`
	Source            Source `json:"source,omitempty"`
	GeminiTotalTokens int64  `json:"gemini_total_tokens,omitempty"`
}

// BonusMetadata describes promotional credits.
type BonusMetadata struct {
	Reason string `json:"reason"`
}

// RefundMetadata links a refund to the transaction it reverses.
type RefundMetadata struct {
	OriginalTransactionID string `json:"original_transaction_id,omitempty"`
	Reason                string `json:"reason,omitempty"`
}

// DonationMetadata describes a donation to the community pot.
type DonationMetadata struct {
	PaymentRef string `json:"payment_ref,omitempty"`
	AmountPaid int64  `json:"amount_paid"`
}

// AdjustmentMetadata records a manual correction by an operator.
type AdjustmentMetadata struct {
	Operator string `json:"operator"`
	Note     string `json:"note,omitempty"`
}

func (PurchaseMetadata) MetadataKind() TransactionKind   { return KindPurchase }
func (UsageMetadata) MetadataKind() TransactionKind      { return KindUsage }
func (BonusMetadata) MetadataKind() TransactionKind      { return KindBonus }
func (RefundMetadata) MetadataKind() TransactionKind     { return KindRefund }
func (DonationMetadata) MetadataKind() TransactionKind   { return KindDonation }
func (AdjustmentMetadata) MetadataKind() TransactionKind { return KindAdjustment }

// MetadataColumn stores a TxMetadata variant as a self-describing JSON
// envelope: {"kind": "...", "data": {...}}. A nil Variant is stored as NULL.
type MetadataColumn struct {
	Variant TxMetadata
}

// Meta wraps a variant for assignment to CreditTransaction.Metadata.
func Meta(v TxMetadata) MetadataColumn { return MetadataColumn{Variant: v} }

type metadataEnvelope struct {
	Kind TransactionKind `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Value implements driver.Valuer.
func (m MetadataColumn) Value() (driver.Value, error) {
	if m.Variant == nil {
		return nil, nil
	}
	data, err := json.Marshal(m.Variant)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(metadataEnvelope{Kind: m.Variant.MetadataKind(), Data: data})
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (m *MetadataColumn) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		m.Variant = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("metadata: unsupported column type %T", src)
	}
	if len(raw) == 0 {
		m.Variant = nil
		return nil
	}
	var env metadataEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	v, err := DecodeMetadata(env.Kind, env.Data)
	if err != nil {
		return err
	}
	m.Variant = v
	return nil
}

// MarshalJSON renders the variant itself (not the storage envelope).
func (m MetadataColumn) MarshalJSON() ([]byte, error) {
	if m.Variant == nil {
		return []byte("null"), nil
	}
	return json.Marshal(m.Variant)
}

// DecodeMetadata decodes data into the variant registered for kind.
func DecodeMetadata(kind TransactionKind, data []byte) (TxMetadata, error) {
	var (
		out TxMetadata
		err error
	)
	switch kind {
	case KindPurchase:
		var v PurchaseMetadata
		err = json.Unmarshal(data, &v)
		out = v
	case KindUsage:
		var v UsageMetadata
		err = json.Unmarshal(data, &v)
		out = v
	case KindBonus:
		var v BonusMetadata
		err = json.Unmarshal(data, &v)
		out = v
	case KindRefund:
		var v RefundMetadata
		err = json.Unmarshal(data, &v)
		out = v
	case KindDonation:
		var v DonationMetadata
		err = json.Unmarshal(data, &v)
		out = v
	case KindAdjustment:
		var v AdjustmentMetadata
		err = json.Unmarshal(data, &v)
		out = v
	default:
		return nil, fmt.Errorf("metadata: unknown kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("metadata: decode %s: %w", kind, err)
	}
	return out, nil
}

// BeforeCreate rejects rows whose metadata variant belongs to another kind.
func (t *CreditTransaction) BeforeCreate(*gorm.DB) error {
	if !t.Kind.Valid() {
		return fmt.Errorf("credit transaction: invalid kind %q", t.Kind)
	}
	if t.Metadata.Variant != nil && t.Metadata.Variant.MetadataKind() != t.Kind {
		return ErrMetadataKindMismatch
	}
	return nil
}
