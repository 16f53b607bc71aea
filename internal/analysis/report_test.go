package analysis

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

func TestRenderText_Golden(t *testing.T) {
	rs := ComputeRun("golden", goldenLogs())
	g := goldie.New(t)
	g.Assert(t, "report", []byte(RenderText(rs)))
}
