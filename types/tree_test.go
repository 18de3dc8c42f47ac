package types

import (
	"testing"
)

const switchingTableXML = `
<ethernet-switching-table-information>
  <ethernet-switching-table>
    <mac-table-entry>
      <mac-address>
        00:11:22:33:44:55
      </mac-address>
      <mac-vlan>v10</mac-vlan>
      <mac-interfaces-list>
        <mac-interfaces>ge-0/0/1.0</mac-interfaces>
      </mac-interfaces-list>
    </mac-table-entry>
    <mac-table-entry>
      <mac-address>66:77:88:99:aa:bb</mac-address>
      <mac-vlan>v20</mac-vlan>
      <mac-interfaces-list>
        <mac-interfaces>ge-0/0/2.0</mac-interfaces>
      </mac-interfaces-list>
    </mac-table-entry>
  </ethernet-switching-table>
</ethernet-switching-table-information>`

func TestParseTreeFind(t *testing.T) {
	tree, err := ParseTree(switchingTableXML)
	if err != nil {
		t.Fatalf("ParseTree: %v", err)
	}

	entries := tree.Find("ethernet-switching-table-information/ethernet-switching-table/mac-table-entry")
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	if got := entries[0].ChildText("mac-address"); got != "00:11:22:33:44:55" {
		t.Errorf("first mac = %q, want embedded newlines stripped", got)
	}
	if got := entries[1].ChildText("mac-interfaces-list/mac-interfaces"); got != "ge-0/0/2.0" {
		t.Errorf("second interface = %q", got)
	}
}

func TestParseTreeTopLevelIsRootChild(t *testing.T) {
	tree, err := ParseTree(`<vlan-information><vlan><vlan-name>v10</vlan-name></vlan></vlan-information>`)
	if err != nil {
		t.Fatalf("ParseTree: %v", err)
	}
	if len(tree.Children) != 1 || tree.Children[0].Name != "vlan-information" {
		t.Fatalf("root children = %+v, want the fragment's top-level element", tree.Children)
	}
	if got := tree.Find("vlan-information/vlan"); len(got) != 1 {
		t.Errorf("Find(vlan-information/vlan) matched %d nodes, want 1", len(got))
	}
}

func TestParseTreeMultipleTopLevel(t *testing.T) {
	tree, err := ParseTree(`<a>1</a><b>2</b>`)
	if err != nil {
		t.Fatalf("ParseTree: %v", err)
	}
	if got := tree.ChildText("a"); got != "1" {
		t.Errorf("a = %q", got)
	}
	if got := tree.ChildText("b"); got != "2" {
		t.Errorf("b = %q", got)
	}
}

func TestParseTreeMalformed(t *testing.T) {
	if _, err := ParseTree(`<a><b></a>`); err == nil {
		t.Fatal("expected error for mismatched tags")
	}
}

func TestFindMissingPath(t *testing.T) {
	tree, err := ParseTree(`<a><b>x</b></a>`)
	if err != nil {
		t.Fatalf("ParseTree: %v", err)
	}
	if got := tree.Find("a/c"); got != nil {
		t.Errorf("Find(a/c) = %v, want nil", got)
	}
	if got := tree.First("a/c"); got != nil {
		t.Errorf("First(a/c) = %v, want nil", got)
	}
	if got := tree.ChildText("a/c"); got != "" {
		t.Errorf("ChildText(a/c) = %q, want empty", got)
	}
}

func TestFindNilReceiver(t *testing.T) {
	var n *Node
	if got := n.Find("x"); got != nil {
		t.Errorf("nil.Find = %v", got)
	}
}
