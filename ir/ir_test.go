package ir

import "testing"

func TestMatchAlwaysFails(t *testing.T) {
	if !MatchAlwaysFails(MakeAlwaysFails()) {
		t.Fatalf("expected MakeAlwaysFails() to report as always-failing")
	}
	if MatchAlwaysFails(Char{C: 'a'}) {
		t.Fatalf("did not expect Char to be always-failing")
	}
}

func TestMatchesExactlyOneChar(t *testing.T) {
	cases := []struct {
		n    Node
		want bool
	}{
		{Char{C: 'a'}, true},
		{CharSet{Chars: []uint32{'a', 'b'}}, true},
		{MatchAny{}, true},
		{Cat{Children: []Node{Char{C: 'a'}, Char{C: 'b'}}}, false},
		{Empty{}, false},
	}
	for _, c := range cases {
		if got := MatchesExactlyOneChar(c.n); got != c.want {
			t.Errorf("MatchesExactlyOneChar(%#v) = %v, want %v", c.n, got, c.want)
		}
	}
}

func TestContainsCaptureGroups(t *testing.T) {
	withGroup := Cat{Children: []Node{
		Char{C: 'a'},
		CaptureGroup{Child: Char{C: 'b'}, ID: 0},
	}}
	if !ContainsCaptureGroups(withGroup) {
		t.Errorf("expected to find nested capture group")
	}
	noGroup := Cat{Children: []Node{Char{C: 'a'}, Char{C: 'b'}}}
	if ContainsCaptureGroups(noGroup) {
		t.Errorf("did not expect to find a capture group")
	}
}

// TestTransformReversesCatInLookbehind exercises the building block the
// parser's finalize step uses: Cat children within a backward lookaround's
// contents get reversed so backward matching visits them in forward
// reading order.
func TestTransformReversesCatInLookbehind(t *testing.T) {
	root := LookaroundAssertion{
		Backwards: true,
		Contents: Cat{Children: []Node{
			Char{C: 'a'}, Char{C: 'b'}, Char{C: 'c'},
		}},
	}

	out := Transform(root, func(n Node, inLookbehind bool) Node {
		cat, ok := n.(Cat)
		if !ok || !inLookbehind {
			return n
		}
		reversed := make([]Node, len(cat.Children))
		for i, c := range cat.Children {
			reversed[len(cat.Children)-1-i] = c
		}
		cat.Children = reversed
		return cat
	})

	la := out.(LookaroundAssertion)
	cat := la.Contents.(Cat)
	got := []uint32{
		cat.Children[0].(Char).C,
		cat.Children[1].(Char).C,
		cat.Children[2].(Char).C,
	}
	want := []uint32{'c', 'b', 'a'}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("reversed children = %v, want %v", got, want)
		}
	}
}

func TestWalkVisitsAllNodes(t *testing.T) {
	root := Cat{Children: []Node{Char{C: 'a'}, Alt{Left: Char{C: 'b'}, Right: Char{C: 'c'}}}}
	count := 0
	Walk(root, func(Node, bool) { count++ })
	// a, b, c, Alt, Cat = 5
	if count != 5 {
		t.Errorf("expected 5 visits, got %d", count)
	}
}
