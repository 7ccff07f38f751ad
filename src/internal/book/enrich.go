package book

import (
	"regexp"
	"strings"

	"novelmeta/src/internal/payload"
	"novelmeta/src/internal/sanitize"
	"novelmeta/src/internal/schema"
	"novelmeta/src/internal/stringsx"
)

const (
	lrm       = "&lrm;"
	nbsp      = "&nbsp;"
	noRanking = "暂无排名"
	signedYes = "已签约"
	signedNo  = "未签约"
	htmlBreak = "<br>"
	htmlBlank = "<br><br>"
	textBlank = "\n\n"
)

var (
	tagSplit   = regexp.MustCompile(`[,&/;，、\s]+`)
	digitRun   = regexp.MustCompile(`\d+`)
	roleLabel  = regexp.MustCompile(`^(主角|配角|其它|其他)[:：]\s*`)
	allDigits  = regexp.MustCompile(`^\d+$`)
	leaveKeys  = []string{"novelLeave", "leave", "novelleave"}
	introFixes = strings.NewReplacer("立意:", "立意：", "立意 :", "立意：")
)

// sources resolves extended fields by priority: the extended payload, then
// the base detail payload, then what the record already holds.
type sources []payload.Value

func newSources(rec schema.Record, extended, base payload.Value) sources {
	var s sources
	for _, v := range []payload.Value{extended, base} {
		if v.Kind() == payload.Map {
			s = append(s, v)
		}
	}
	tagList := make([]any, 0, len(rec.Tags))
	for _, t := range rec.Tags {
		tagList = append(tagList, t)
	}
	s = append(s, payload.From(map[string]any{
		"tags":        tagList,
		"description": rec.Synopsis,
		"series":      rec.Series,
		"word_count":  rec.WordCount,
	}))
	return s
}

func (s sources) pick(keys ...string) payload.Value {
	for _, src := range s {
		v := payload.Extended.Pick(src, keys...)
		if v.Kind() == payload.String && strings.TrimSpace(v.Text()) == "" {
			continue
		}
		if !v.Empty() {
			return v
		}
	}
	return payload.Value{}
}

func (s sources) text(keys ...string) string { return strings.TrimSpace(s.pick(keys...).Text()) }

func (s sources) leave() payload.Value {
	for _, src := range s {
		for _, k := range leaveKeys {
			if v := src.Get(k); !v.Empty() {
				return v
			}
		}
	}
	return payload.Value{}
}

// Enrich merges an extended-info payload into rec. base is the detail payload
// rec was built from. The genre is prepended to the tags, the extended tag
// list is unioned in, the extended intro is appended to Comments, and a fixed
// layout block is appended to both synopsis forms.
func Enrich(rec schema.Record, extended, base payload.Value) schema.Record {
	src := newSources(rec, extended, base)
	var lines []string

	class := src.text("novelClass", "novel_class", "category")
	if class != "" {
		rec.Tags = stringsx.Prepend(rec.Tags, class)
	}

	size := src.pick("novelSize", "novel_size", "novelSizeShow", "novelsizeformat", "word_count", "words")
	sizeText := size.Text()
	if k := size.Kind(); k == payload.Map || k == payload.List {
		sizeText = sanitize.HTMLToText(size.JSON())
	}
	clicks := src.text("novip_clicks", "novipClicks", "novipClick", "novipclicks")
	score := src.text("novelScore", "score", "novelscore")
	signed := signedLabel(src.pick("isSign", "is_sign", "issign"))

	befav := stringsx.FirstNonEmpty(src.text("novelbefavoritedcount", "befavoritedcount", "favoriteCount"), "0")
	nutrition := stringsx.FirstNonEmpty(src.text("nutrition_novel", "nutrition", "nutritionNovel"), "0")
	rank := digitRun.FindString(src.text("ranking", "rank", "ranking_str"))
	if rank == "" {
		rank = noRanking
	}

	intro := ""
	if raw := src.pick("novelIntro", "novelintro", "novelIntroShort", "novelIntroShortHtml", "description", "desc"); !raw.Empty() {
		intro = sanitize.HTMLToText(raw.Text())
		if c := strings.TrimSpace(rec.Comments); c != "" {
			rec.Comments = c + textBlank + intro
		} else {
			rec.Comments = intro
		}
		intro = introFixes.Replace(intro)
	}

	tagLine := ""
	if extra := splitTags(src.pick("novelTags", "novel_tags", "tags")); len(extra) > 0 {
		rec.Tags = stringsx.AppendUnique(rec.Tags, extra...)
		tagLine = "标签：" + strings.Join(extra, nbsp)
	}

	var roles strings.Builder
	for _, r := range []struct{ label, val string }{
		{"主角：", cleanRole(src.pick("protagonist", "protagonists", "主角"))},
		{"配角：", cleanRole(src.pick("costar", "coStar", "配角"))},
		{"其它：", cleanRole(src.pick("other", "others"))},
	} {
		if r.val != "" {
			roles.WriteString(r.label + r.val)
		}
	}

	style := src.text("novelStyle", "style")
	view := src.text("mainview", "view")
	series := src.text("series")

	first := leaveNote(src.leave())
	if class != "" {
		first += "文章类型：" + class
	}
	lines = appendIf(lines, first, first)
	lines = appendIf(lines, sizeText, "全文字数："+sizeText)
	lines = appendIf(lines, clicks, "非V点击："+clicks)
	lines = appendIf(lines, score, "文章积分："+score)
	lines = append(lines,
		"签约状态："+signed,
		lrm,
		"⭐"+nbsp+befav+"丨👍"+nbsp+"No."+rank+"丨🍼"+nbsp+nutrition,
		lrm,
	)
	if intro != "" {
		lines = append(lines, intro, lrm)
	}
	lines = appendIf(lines, tagLine, tagLine)
	lines = appendIf(lines, roles.String(), roles.String())
	if style != "" || view != "" {
		lines = append(lines, "风格："+style+strings.Repeat(nbsp, 4)+"视角："+view)
	}
	lines = appendIf(lines, series, "所属："+series)

	htmlLines := make([]string, len(lines))
	for i, l := range lines {
		htmlLines[i] = strings.ReplaceAll(l, "\n", htmlBreak)
	}
	blockHTML := strings.Join(htmlLines, htmlBreak)
	blockText := strings.Join(lines, "\n")

	if prev := stringsx.FirstNonEmpty(rec.SynopsisHTML, rec.Synopsis); prev != "" {
		rec.SynopsisHTML = prev + htmlBlank + blockHTML
	} else {
		rec.SynopsisHTML = blockHTML
	}
	if prev := strings.TrimSpace(rec.Synopsis); prev != "" {
		rec.Synopsis = prev + textBlank + blockText
	} else {
		rec.Synopsis = blockText
	}
	return rec
}

func appendIf(lines []string, cond, line string) []string {
	if strings.TrimSpace(cond) == "" {
		return lines
	}
	return append(lines, line)
}

// leaveNote renders the author's latest note as its own paragraph, or "".
func leaveNote(v payload.Value) string {
	if v.Kind() != payload.Map {
		return ""
	}
	get := func(keys ...string) string {
		for _, k := range keys {
			if x := v.Get(k); !x.Empty() {
				return x.Text()
			}
		}
		return ""
	}
	var parts []string
	for _, s := range []string{
		get("leaveDateBack", "leave_date_back"),
		get("leaveContent", "leave_content"),
		get("leaveDate", "leaveDateStr", "leave_date"),
	} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n") + "\n" + lrm + "\n"
}

// signedLabel renders the contract flag. Booleans are taken as-is; text is
// signed when it reads 1, true, yes or any positive integer. A missing flag
// is rendered as not signed.
func signedLabel(v payload.Value) string {
	if v.Kind() == payload.Bool {
		if !v.Empty() {
			return signedYes
		}
		return signedNo
	}
	raw := strings.TrimSpace(v.Text())
	switch strings.ToLower(raw) {
	case "":
		return signedNo
	case "1", "true", "yes":
		return signedYes
	}
	if allDigits.MatchString(raw) && strings.Trim(raw, "0") != "" {
		return signedYes
	}
	return signedNo
}

func splitTags(v payload.Value) []string {
	switch v.Kind() {
	case payload.List:
		return stringsx.AppendUnique(nil, v.Strings()...)
	case payload.String:
		return stringsx.AppendUnique(nil, tagSplit.Split(v.Text(), -1)...)
	}
	return nil
}

func cleanRole(v payload.Value) string {
	if v.Empty() {
		return ""
	}
	return strings.TrimSpace(roleLabel.ReplaceAllString(sanitize.HTMLToText(v.Text()), ""))
}
