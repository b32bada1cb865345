package session

import (
	"fmt"
	"net/url"
	"sort"
	"time"
)

// Preset names.
const (
	PresetInventory = "inventory"
	PresetCustomer  = "customer"
)

// SearchParams are the user-facing inputs shared by the presets.
type SearchParams struct {
	// Search is the keyword or barcode typed into txtSearch.
	Search string
	// BeginDate and EndDate bound the inventory query (YYYY-MM-DD). Both
	// default to today.
	BeginDate string
	EndDate   string
	// MenuID is the hfYhzCdid hidden field identifying the menu entry the
	// page was opened from.
	MenuID string
	// Overrides replace individual form fields.
	Overrides map[string]string
}

// Preset returns the query for one of the recorded pages.
func Preset(name string, p SearchParams, now time.Time) (Query, error) {
	var q Query
	switch name {
	case PresetInventory:
		q = inventoryQuery(p, now)
	case PresetCustomer:
		q = customerQuery(p)
	default:
		return Query{}, fmt.Errorf("unknown query %q (known: %v)", name, PresetNames())
	}
	for k, v := range p.Overrides {
		q.Fields.Set(k, v)
	}
	return q, nil
}

// PresetNames lists the available presets.
func PresetNames() []string {
	names := []string{PresetInventory, PresetCustomer}
	sort.Strings(names)
	return names
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func inventoryQuery(p SearchParams, now time.Time) Query {
	today := now.Format("2006-01-02")
	f := url.Values{}
	f.Set("__VIEWSTATEENCRYPTED", "")
	f.Set("txtBeginDate", orDefault(p.BeginDate, today))
	f.Set("txtEndDate", orDefault(p.EndDate, today))
	f.Set("dropKYKC", "-1")
	f.Set("txtSearch", p.Search)
	f.Set("chkDKW", "on")
	f.Set("cblStockType$0", "on")
	f.Set("cblStockType$1", "on")
	f.Set("cblStockType$2", "on")
	f.Set("MyPager1$hfChangePageSize", "")
	f.Set("hfYhzCdid", orDefault(p.MenuID, "09679AE7-A3A1-4E08-9DC1-8A9A96EF6438"))
	f.Set("hfCKID", "")
	f.Set("hdfcpid", "")
	return Query{
		Name:               PresetInventory,
		Path:               "kuCunManage/InventoryCheck.aspx",
		EventTarget:        "btnSearch",
		ViewStateGenerator: "473175CD",
		Fields:             f,
	}
}

func customerQuery(p SearchParams) Query {
	f := url.Values{}
	for _, k := range []string{
		"txtTargetGroup", "txtAqqkje", "txtAqqkts", "hdfControl",
		"hfTwoLevel_FirstId", "hfTwoLevel_SecondId", "hfTwoLevelId",
		"txtID", "txtKHLBID", "txtQtBm", "txtSelectedData", "txtJLKHBM",
		"hdfCusotmerTypeId", "hdfCustomerTypeNode", "hdfCustomerId", "txtKHBH",
		"hdfNEWYWYID", "txtYWYMC", "hfKHID", "hfKHMC", "hfDeleteID", "hfDbType",
	} {
		f.Set(k, "")
	}
	f.Set("rblSKFS", "401")
	f.Set("txtBeginDate", p.BeginDate)
	f.Set("txtEndDate", p.EndDate)
	f.Set("txtSearch", p.Search)
	f.Set("txtMode", "1")
	f.Set("weyio1", "1")
	f.Set("hdfIsEdit", "0")
	f.Set("leftPartAlowEdit", "true")
	f.Set("hfKhType", "0")
	f.Set("hfYhzCdid", orDefault(p.MenuID, "82312e34-a149-46b5-abd8-a94666354aec"))
	f.Set("hfSFKTLKSC", "false")
	f.Set("hfQYPZT", "false")
	return Query{
		Name:               PresetCustomer,
		Path:               "Manage/CustomManage.aspx",
		EventTarget:        "btnSearch",
		ViewStateGenerator: "0BFF6C66",
		Fields:             f,
	}
}
