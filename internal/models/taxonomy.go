package models

// RootTaxonym is the identifier of the single taxonomy root.
const RootTaxonym int64 = 1

// Taxonym is a node of the classification hierarchy.
// Parent is zero only for the root.
type Taxonym struct {
	ID      int64    `json:"id"`
	Parent  int64    `json:"parent,omitempty"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
	Parents []int64  `json:"parents,omitempty"` // non-canonical parents
}

// Tag makes a taxonym applicable to documents.
type Tag struct {
	ID      int64 `json:"id"`
	Taxonym int64 `json:"taxonym"`
}

// Implication states that applying Antecedent also reads as Consequent.
type Implication struct {
	Antecedent int64 `json:"antecedent"`
	Consequent int64 `json:"consequent"`
}

// Slot is one positioned entry of a materialized view.
// Document is zero when the slot is missing.
type Slot struct {
	Index    int    `json:"index"`
	Hash     string `json:"hash"`
	Ext      string `json:"ext,omitempty"`
	Document int64  `json:"document,omitempty"`
	Missing  bool   `json:"missing,omitempty"`
	Reason   string `json:"reason,omitempty"`
}
