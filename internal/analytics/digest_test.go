package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analysisWith(id int, alerts ...Alert) *SeasonAnalysis {
	a := &SeasonAnalysis{PlayerID: id, Season: 2024, Alerts: alerts}
	a.summarize()
	return a
}

func alert(tier int, signal Signal) Alert {
	return Alert{Metric: MetricBABIP, Tier: tier, Signal: signal}
}

func TestBuildDigest(t *testing.T) {
	analyses := []*SeasonAnalysis{
		analysisWith(1, alert(1, SignalBuy), alert(1, SignalBuy)),
		analysisWith(2, alert(1, SignalBuy), alert(2, SignalBuy), alert(2, SignalBuy)),
		analysisWith(3, alert(2, SignalBuy)),
		analysisWith(4, alert(1, SignalSell), alert(2, SignalSell)),
		analysisWith(5, alert(2, SignalSell)),
		analysisWith(6, alert(1, SignalBuy), alert(2, SignalSell)),
		analysisWith(7, alert(3, SignalBuy)),
		analysisWith(1, alert(2, SignalSell)),
		nil,
	}

	d := BuildDigest(analyses)
	assert.Equal(t, 7, d.Players)

	require.Len(t, d.StrongBuys, 2)
	assert.Equal(t, 2, d.StrongBuys[0].PlayerID, "larger net signal first")
	assert.Equal(t, 3, d.StrongBuys[0].NetSignal)
	assert.Equal(t, 1, d.StrongBuys[1].PlayerID)
	assert.Equal(t, CategoryStrongBuy, d.StrongBuys[1].Category)

	require.Len(t, d.Buys, 1)
	assert.Equal(t, 3, d.Buys[0].PlayerID)
	require.Len(t, d.StrongSells, 1)
	assert.Equal(t, 4, d.StrongSells[0].PlayerID)
	require.Len(t, d.Sells, 1)
	assert.Equal(t, 5, d.Sells[0].PlayerID)
	require.Len(t, d.Mixed, 1)
	assert.Equal(t, 6, d.Mixed[0].PlayerID)

	assert.Equal(t, "players=7 strong_buy=2 buy=1 strong_sell=1 sell=1 mixed=1", d.Summary())
}

func TestBuildDigestEmpty(t *testing.T) {
	d := BuildDigest(nil)
	assert.Equal(t, 0, d.Players)
	assert.NotNil(t, d.StrongBuys)
	assert.Empty(t, d.Mixed)
}
