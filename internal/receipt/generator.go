// Package receipt renders committed ledger entries as PDF receipts.
package receipt

import (
	"errors"

	"github.com/dustin/go-humanize"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	marotoconfig "github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/pullpaylabs/pullpay/internal/config"
	ledgerdomain "github.com/pullpaylabs/pullpay/internal/ledger/domain"
)

var ErrMissingEntry = errors.New("receipt_missing_entry")

// Data is one entry plus the resolved party names the PDF shows.
// FromOwner stays empty for credits minted from outside the ledger.
type Data struct {
	Entry     *ledgerdomain.Entry
	FromOwner string
	ToOwner   string
}

type Params struct {
	fx.In

	Log    *zap.Logger
	Config config.Config
}

type Generator struct {
	log   *zap.Logger
	asset string
}

func NewGenerator(p Params) *Generator {
	return &Generator{
		log:   p.Log.Named("receipt"),
		asset: p.Config.Platform.Asset,
	}
}

var labelColor = &props.Color{Red: 96, Green: 96, Blue: 96}

// Render produces the PDF bytes for one entry.
func (g *Generator) Render(data Data) ([]byte, error) {
	if data.Entry == nil {
		return nil, ErrMissingEntry
	}
	entry := data.Entry

	cfg := marotoconfig.NewBuilder().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build()
	m := maroto.New(cfg)

	m.AddRow(12, text.NewCol(12, "Payment Receipt", props.Text{
		Size: 16, Style: fontstyle.Bold, Align: align.Center,
	}))
	m.AddRow(6, text.NewCol(12, "Entry "+entry.ID.String(), props.Text{
		Size: 9, Align: align.Center, Color: labelColor,
	}))
	m.AddRow(4, line.NewCol(12))

	from := data.FromOwner
	if from == "" {
		from = "external"
	}
	rows := []core.Row{
		detailRow("Date", entry.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC")),
		detailRow("Kind", string(entry.Kind)),
		detailRow("From", from),
		detailRow("To", data.ToOwner),
	}
	if entry.Spender != "" {
		rows = append(rows, detailRow("Authorized spender", entry.Spender))
	}
	if entry.Memo != "" {
		rows = append(rows, detailRow("Memo", entry.Memo))
	}
	m.AddRows(rows...)

	m.AddRow(4, line.NewCol(12))
	m.AddRow(10,
		text.NewCol(6, "Amount", props.Text{Size: 12, Style: fontstyle.Bold}),
		text.NewCol(6, humanize.Comma(entry.Amount)+" "+g.asset, props.Text{
			Size: 12, Style: fontstyle.Bold, Align: align.Right,
		}),
	)

	doc, err := m.Generate()
	if err != nil {
		g.log.Error("receipt render failed",
			zap.Int64("entry_id", int64(entry.ID)), zap.Error(err))
		return nil, err
	}
	return doc.GetBytes(), nil
}

func detailRow(label, value string) core.Row {
	return row.New(7).Add(
		text.NewCol(4, label, props.Text{Size: 10, Color: labelColor}),
		text.NewCol(8, value, props.Text{Size: 10}),
	)
}
