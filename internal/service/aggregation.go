package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/peakcary/stock-analysis-system-sub001/internal/model"
)

// Derived 一个交易日的全部派生数据
type Derived struct {
	Summaries []*model.ConceptDailySummary
	Rankings  []*model.StockConceptRanking
	Highs     []*model.ConceptHighRecord
}

// ComputeDerived 由当日交易记录和成员关系整日重算汇总与排名.
//
// previousHigh 为每个概念在之前窗口内的最大总成交量, 没有历史的概念不会被标记为新高.
func ComputeDerived(date string, rows []model.TradingRecord, membership map[string][]string,
	previousHigh map[string]int64, window int) *Derived {
	members := make(map[string][]model.TradingRecord)
	for _, r := range rows {
		for _, concept := range membership[r.StockCode] {
			members[concept] = append(members[concept], r)
		}
	}
	concepts := make([]string, 0, len(members))
	for c := range members {
		concepts = append(concepts, c)
	}
	sort.Strings(concepts)

	out := &Derived{}
	for _, concept := range concepts {
		list := members[concept]
		sort.Slice(list, func(i, j int) bool {
			if list[i].TradingVolume != list[j].TradingVolume {
				return list[i].TradingVolume > list[j].TradingVolume
			}
			return list[i].StockCode < list[j].StockCode
		})
		var total int64
		for i, r := range list {
			total += r.TradingVolume
			out.Rankings = append(out.Rankings, &model.StockConceptRanking{
				Concept:   concept,
				TradeDate: date,
				StockCode: r.StockCode,
				Rank:      i + 1,
				Volume:    r.TradingVolume,
			})
		}
		prev, hasHistory := previousHigh[concept]
		s := &model.ConceptDailySummary{
			Concept:       concept,
			TradeDate:     date,
			TotalVolume:   total,
			StockCount:    len(list),
			AverageVolume: decimal.NewFromInt(total).DivRound(decimal.NewFromInt(int64(len(list))), 2),
			PreviousHigh:  prev,
			IsNewHigh:     hasHistory && total > prev,
		}
		out.Summaries = append(out.Summaries, s)
		if s.IsNewHigh {
			out.Highs = append(out.Highs, &model.ConceptHighRecord{
				Concept:      concept,
				TradeDate:    date,
				TotalVolume:  total,
				PreviousHigh: prev,
				WindowDays:   window,
				StockCount:   s.StockCount,
			})
		}
	}
	return out
}
