package genealogy

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/kinship/internal/model"
	"github.com/mitchellh/mapstructure"
)

const dateLayout = "2006-01-02"

// Accepted date-of-birth string layouts, tried in order.
var dateLayouts = []string{
	dateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
}

var avatarGlyphs = map[model.Gender]string{
	model.GenderMale:   "👨",
	model.GenderFemale: "👩",
	model.GenderOther:  "🧑",
}

// rawMember is the decode target for one raw record. Fields typed any keep
// whatever shape the backend sent so they can be interpreted leniently.
type rawMember struct {
	ID          any    `mapstructure:"id"`
	FirstName   string `mapstructure:"firstName"`
	LastName    string `mapstructure:"lastName"`
	Gender      string `mapstructure:"gender"`
	DateOfBirth any    `mapstructure:"dateOfBirth"`
	Generation  int    `mapstructure:"generation"`
	Photo       string `mapstructure:"photo"`
	PhotoRef    string `mapstructure:"photoRef"`
	Father      any    `mapstructure:"father"`
	Mother      any    `mapstructure:"mother"`
	Spouse      any    `mapstructure:"spouse"`
}

// Normalized is the deduplicated person set plus the relationship
// references each person's first record carried.
type Normalized struct {
	People map[string]*model.Person
	Order  []string
	Links  map[string]Links
	Stats  Stats
}

// Normalize converts raw records into canonical people. The first record
// for an id wins; records without an id are dropped.
func (b *Builder) Normalize(records []model.RawRecord) *Normalized {
	n := &Normalized{
		People: make(map[string]*model.Person, len(records)),
		Links:  make(map[string]Links, len(records)),
	}
	n.Stats.Records = len(records)

	for i, rec := range records {
		p, links, ok := b.normalizeOne(rec)
		if !ok {
			n.Stats.Dropped++
			b.logger.Debug("dropped record without id", "index", i)
			continue
		}
		if _, dup := n.People[p.ID]; dup {
			n.Stats.Duplicates++
			b.logger.Debug("discarded duplicate record", "id", p.ID, "index", i)
			continue
		}
		n.People[p.ID] = p
		n.Links[p.ID] = links
		n.Order = append(n.Order, p.ID)
	}

	return n
}

func (b *Builder) normalizeOne(rec model.RawRecord) (*model.Person, Links, bool) {
	if rec == nil {
		return nil, Links{}, false
	}

	var raw rawMember
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &raw,
	})
	if err != nil {
		return nil, Links{}, false
	}
	// Fields that fail to decode stay zero; the rest of the record is kept.
	if err := dec.Decode(map[string]any(rec)); err != nil {
		b.logger.Debug("partially decoded record", "error", err)
	}

	id := refID(raw.ID)
	if id == "" {
		return nil, Links{}, false
	}

	gender := parseGender(raw.Gender)
	photo := raw.Photo
	if photo == "" {
		photo = raw.PhotoRef
	}
	if b.photos != nil {
		photo = b.photos.Resolve(photo)
	}

	p := &model.Person{
		ID:          id,
		FirstName:   strings.TrimSpace(raw.FirstName),
		LastName:    strings.TrimSpace(raw.LastName),
		Gender:      gender,
		DateOfBirth: parseDate(raw.DateOfBirth),
		Generation:  raw.Generation,
		PhotoRef:    photo,
		AvatarGlyph: avatarGlyphs[gender],
	}
	links := Links{
		Father: refID(raw.Father),
		Mother: refID(raw.Mother),
		Spouse: refID(raw.Spouse),
	}
	return p, links, true
}

// refID extracts an identifier from a reference that is either a bare id
// or an object carrying one.
func refID(v any) string {
	switch r := v.(type) {
	case nil:
		return ""
	case map[string]any:
		return scalarID(r["id"])
	case model.RawRecord:
		return scalarID(r["id"])
	}
	return scalarID(v)
}

func scalarID(v any) string {
	switch r := v.(type) {
	case string:
		return strings.TrimSpace(r)
	case json.Number:
		return r.String()
	case float64:
		if r == math.Trunc(r) && math.Abs(r) < 1<<63 {
			return strconv.FormatInt(int64(r), 10)
		}
		return strconv.FormatFloat(r, 'f', -1, 64)
	case float32:
		return scalarID(float64(r))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(r)
	}
	return ""
}

func parseGender(s string) model.Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "female", "f":
		return model.GenderFemale
	case "other":
		return model.GenderOther
	}
	return model.GenderMale
}

// parseDate renders a date of birth as YYYY-MM-DD, or "" when it is absent
// or cannot be understood.
func parseDate(v any) string {
	switch d := v.(type) {
	case time.Time:
		if d.IsZero() {
			return ""
		}
		return d.Format(dateLayout)
	case *time.Time:
		if d == nil {
			return ""
		}
		return parseDate(*d)
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return ""
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(dateLayout)
			}
		}
	case map[string]any:
		return parseDateParts(d)
	case model.RawRecord:
		return parseDateParts(d)
	}
	return ""
}

func parseDateParts(m map[string]any) string {
	var parts struct {
		Year  int `mapstructure:"year"`
		Month int `mapstructure:"month"`
		Day   int `mapstructure:"day"`
	}
	if err := mapstructure.WeakDecode(m, &parts); err != nil {
		return ""
	}
	if parts.Year <= 0 || parts.Month < 1 || parts.Month > 12 || parts.Day < 1 {
		return ""
	}
	t := time.Date(parts.Year, time.Month(parts.Month), parts.Day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (Feb 30 → Mar 2); reject instead.
	if t.Day() != parts.Day {
		return ""
	}
	return t.Format(dateLayout)
}
