package main

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var naturalTimeParser *when.Parser

func init() {
	naturalTimeParser = when.New(nil)
	naturalTimeParser.Add(en.All...)
	naturalTimeParser.Add(common.All...)
}

// parseNaturalTime turns a phrase like "3 days ago" or "yesterday" into a
// time.Time, used by "snapshot latest --since".
func parseNaturalTime(phrase string) (time.Time, error) {
	res, err := naturalTimeParser.Parse(phrase, time.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", phrase, err)
	}
	if res == nil {
		return time.Time{}, fmt.Errorf("parse %q: no match", phrase)
	}
	return res.Time, nil
}
