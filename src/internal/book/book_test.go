package book

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"novelmeta/src/internal/apperr"
	"novelmeta/src/internal/payload"
	"novelmeta/src/internal/schema"
)

var cst = time.FixedZone("CST", 8*3600)

func mustParse(t *testing.T, s string) payload.Value {
	t.Helper()
	v, err := payload.Parse([]byte(s))
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return v
}

func TestBuildEnvelope(t *testing.T) {
	v := mustParse(t, `{"code":0,"data":{"book":{"bookname":"Y","author":"Z"}}}`)
	rec, err := Build(v, "1", cst)
	require.NoError(t, err)
	require.Equal(t, "Y", rec.Title)
	require.Equal(t, []string{"Z"}, rec.Authors)
	require.Equal(t, "https://www.jjwxc.net/onebook.php?novelid=1", rec.URL)
	require.Equal(t, schema.JinjiangSource, rec.Source)
}

func TestBuildAllFields(t *testing.T) {
	v := mustParse(t, `{
		"novelName": "<b>书名</b>",
		"authorName": "甲，乙 / 甲",
		"localImg": "https://static.jjwxc.net/default.jpg",
		"novelCover": "//i9-static.jjwxc.net/novelimage.php?novelid=1",
		"novelintro": "a &amp; b",
		"category": "原创",
		"tags": "甜文,HE, 原创",
		"createTime": "1552406400",
		"status": "连载",
		"wordCount": 12345,
		"chapterCount": "12",
		"vipStart": 5,
		"rating": "4.5",
		"series": "系列"
	}`)
	rec, err := Build(v, "1", cst)
	require.NoError(t, err)
	require.Equal(t, "书名", rec.Title)
	if diff := cmp.Diff([]string{"甲", "乙"}, rec.Authors); diff != "" {
		t.Fatalf("authors (-want +got):\n%s", diff)
	}
	require.Equal(t, "https://i9-static.jjwxc.net/novelimage.php?novelid=1", rec.Cover)
	require.Equal(t, "a &amp; b", rec.SynopsisHTML)
	require.Equal(t, "a & b", rec.Synopsis)
	if diff := cmp.Diff([]string{"原创", "甜文", "HE"}, rec.Tags); diff != "" {
		t.Fatalf("tags (-want +got):\n%s", diff)
	}
	require.Equal(t, "2019-03-13", rec.Published)
	require.Equal(t, "连载", rec.Status)
	require.Equal(t, "12345", rec.WordCount)
	require.Equal(t, 12, rec.Chapters)
	require.Equal(t, 5, rec.VIPStart)
	require.NotNil(t, rec.Rating)
	require.InDelta(t, 4.5, *rec.Rating, 1e-9)
	require.Equal(t, "系列", rec.Series)
}

func TestBuildAuthorList(t *testing.T) {
	rec, err := Build(mustParse(t, `{"title":"T","authors":["甲","乙&丙"," "]}`), "2", nil)
	require.NoError(t, err)
	require.Equal(t, []string{"甲", "乙", "丙"}, rec.Authors)
}

func TestBuildCoverResolution(t *testing.T) {
	cases := []struct{ in, want string }{
		{`{"title":"T","author":"A","cover":"/images/a.jpg"}`, "https://www.jjwxc.net/images/a.jpg"},
		{`{"title":"T","author":"A","coverimg":"images/a.jpg"}`, ""},
		{`{"title":"T","author":"A","cover":"data:image/png;base64,AA=="}`, "data:image/png;base64,AA=="},
		{`{"title":"T","author":"A","originalCover":"https://x/o.jpg","localImg":"https://x/l.jpg"}`, "https://x/o.jpg"},
		{`{"title":"T","author":"A","localImg":"https://x/l.jpg"}`, "https://x/l.jpg"},
	}
	for _, c := range cases {
		rec, err := Build(mustParse(t, c.in), "3", nil)
		if err != nil {
			t.Fatalf("Build(%s): %v", c.in, err)
		}
		if rec.Cover != c.want {
			t.Fatalf("cover for %s = %q want %q", c.in, rec.Cover, c.want)
		}
	}
}

func TestBuildGate(t *testing.T) {
	_, err := Build(mustParse(t, `{"code":0,"data":{"foo":1}}`), "4", nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrIncomplete))
	require.Equal(t, apperr.Schema, apperr.KindOf(err))

	rec, err := Build(mustParse(t, `{"bookname":"only title"}`), "5", nil)
	require.ErrorIs(t, err, ErrIncomplete)
	require.ErrorIs(t, err, schema.ErrMissingAuthors)
	require.Equal(t, "only title", rec.Title)
}

func TestEnrichFullBlock(t *testing.T) {
	ext := mustParse(t, `{
		"novelClass": "原创-言情-近代现代-爱情",
		"novelSize": "123,456字",
		"novip_clicks": "999",
		"novelScore": "1,000",
		"isSign": "2",
		"novelbefavoritedcount": "88",
		"ranking": "第12名",
		"nutrition_novel": "77",
		"novelIntro": "立意:积极向上",
		"novelTags": "甜文 HE，都市",
		"protagonist": "主角：张三",
		"costar": "李四",
		"novelStyle": "轻松",
		"mainview": "女主视角",
		"series": "系列一",
		"novelLeave": {"leaveDateBack": "2024-01-01", "leaveContent": "请假"}
	}`)
	rec := schema.NewRecord("9")
	rec.Title, rec.Authors = "T", []string{"A"}
	rec.Tags = []string{"x"}
	rec.Synopsis, rec.SynopsisHTML = "原简介", "<p>原简介</p>"

	got := Enrich(rec, ext, payload.Value{})

	lines := []string{
		"2024-01-01\n请假\n&lrm;\n文章类型：原创-言情-近代现代-爱情",
		"全文字数：123,456字",
		"非V点击：999",
		"文章积分：1,000",
		"签约状态：已签约",
		"&lrm;",
		"⭐&nbsp;88丨👍&nbsp;No.12丨🍼&nbsp;77",
		"&lrm;",
		"立意：积极向上",
		"&lrm;",
		"标签：甜文&nbsp;HE&nbsp;都市",
		"主角：张三配角：李四",
		"风格：轻松&nbsp;&nbsp;&nbsp;&nbsp;视角：女主视角",
		"所属：系列一",
	}
	wantText := "原简介\n\n" + strings.Join(lines, "\n")
	if diff := cmp.Diff(wantText, got.Synopsis); diff != "" {
		t.Fatalf("text block (-want +got):\n%s", diff)
	}
	wantHTML := "<p>原简介</p><br><br>" + strings.ReplaceAll(strings.Join(lines, "<br>"), "\n", "<br>")
	if diff := cmp.Diff(wantHTML, got.SynopsisHTML); diff != "" {
		t.Fatalf("html block (-want +got):\n%s", diff)
	}
	require.Equal(t, "立意:积极向上", got.Comments)
	require.Equal(t, []string{"原创-言情-近代现代-爱情", "x", "甜文", "HE", "都市"}, got.Tags)
	// input untouched
	require.Equal(t, []string{"x"}, rec.Tags)
}

func TestEnrichDefaults(t *testing.T) {
	rec := schema.NewRecord("9")
	got := Enrich(rec, mustParse(t, `{"NovelClass":"X"}`), payload.Value{})
	want := strings.Join([]string{
		"文章类型：X",
		"签约状态：未签约",
		"&lrm;",
		"⭐&nbsp;0丨👍&nbsp;No.暂无排名丨🍼&nbsp;0",
		"&lrm;",
	}, "\n")
	require.Equal(t, want, got.Synopsis)
	require.Equal(t, strings.ReplaceAll(want, "\n", "<br>"), got.SynopsisHTML)
	require.Equal(t, []string{"X"}, got.Tags)
	require.Empty(t, got.Comments)
}

func TestEnrichFallsBackToBase(t *testing.T) {
	rec := schema.NewRecord("9")
	rec.Comments = "旧"
	base := mustParse(t, `{"novelScore":"5","novelintro":"基础简介"}`)
	got := Enrich(rec, mustParse(t, `{"data":{"novelClass":"C"}}`), base)
	require.Contains(t, got.Synopsis, "文章积分：5")
	require.Contains(t, got.Synopsis, "文章类型：C")
	require.Equal(t, "旧\n\n基础简介", got.Comments)
}

func TestEnrichWordCountFromRecord(t *testing.T) {
	base := mustParse(t, `{"bookname":"T","author":"A","wordCount":"123456"}`)
	rec, err := Build(base, "9", nil)
	require.NoError(t, err)
	got := Enrich(rec, mustParse(t, `{"isSign":"1"}`), base)
	require.Contains(t, got.Synopsis, "全文字数：123456\n签约状态：已签约")
}

func TestSignedLabel(t *testing.T) {
	cases := map[string]string{
		`{"v":true}`:   signedYes,
		`{"v":false}`:  signedNo,
		`{"v":1}`:      signedYes,
		`{"v":0}`:      signedNo,
		`{"v":"1"}`:    signedYes,
		`{"v":"YES"}`:  signedYes,
		`{"v":"true"}`: signedYes,
		`{"v":"007"}`:  signedYes,
		`{"v":"000"}`:  signedNo,
		`{"v":"no"}`:   signedNo,
		`{"v":""}`:     signedNo,
		`{}`:           signedNo,
	}
	for in, want := range cases {
		if got := signedLabel(mustParse(t, in).Get("v")); got != want {
			t.Fatalf("signedLabel(%s)=%s want %s", in, got, want)
		}
	}
}

func TestCleanRole(t *testing.T) {
	v := payload.From("其他: <i>路人</i>")
	if got := cleanRole(v); got != "路人" {
		t.Fatalf("cleanRole=%q", got)
	}
}
