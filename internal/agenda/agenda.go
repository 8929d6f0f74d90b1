// Package agenda renders bucketed calendar windows as text, XML and iCalendar.
package agenda

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/cyp0633/taskrecur/calendar"
	"github.com/cyp0633/taskrecur/recurrence"
	"github.com/cyp0633/taskrecur/storage"
)

const (
	TagAgenda = "agenda"
	TagDay    = "day"
	TagItem   = "item"
	TagTitle  = "title"
	TagDue    = "due"

	AttrStart    = "start"
	AttrEnd      = "end"
	AttrDate     = "date"
	AttrID       = "id"
	AttrSeries   = "series"
	AttrStatus   = "status"
	AttrPriority = "priority"
	AttrVirtual  = "virtual"
	AttrIndex    = "index"
)

// Agenda is the export shape of a calendar window
type Agenda struct {
	Start time.Time
	End   time.Time
	Days  []Day
}

// Day holds the items of one calendar day
type Day struct {
	Date  time.Time
	Items []Item
}

// Item is one entry of a day
type Item struct {
	ID       string
	SeriesID string
	Title    string
	Due      time.Time
	Status   storage.Status
	Priority storage.Priority
	Virtual  bool
	Index    int
}

// FromDays converts calendar days into an agenda. Empty days are kept.
func FromDays(days []calendar.Day, start, end time.Time) *Agenda {
	a := &Agenda{Start: recurrence.DayOf(start), End: recurrence.DayOf(end)}
	for _, d := range days {
		day := Day{Date: d.Date}
		for _, e := range d.Entries {
			item := Item{
				SeriesID: e.SeriesID(),
				Title:    e.Title(),
				Due:      e.DueDate(),
				Status:   e.Status(),
				Priority: e.Priority(),
				Virtual:  e.IsVirtual(),
			}
			if e.IsVirtual() {
				item.Index = e.Virtual.OccurrenceIndex
			} else {
				item.ID = e.Task.ID
			}
			day.Items = append(day.Items, item)
		}
		a.Days = append(a.Days, day)
	}
	return a
}

// ToXML converts the agenda to an XML document
func (a *Agenda) ToXML() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(TagAgenda)
	root.CreateAttr(AttrStart, a.Start.Format(recurrence.DateLayout))
	root.CreateAttr(AttrEnd, a.End.Format(recurrence.DateLayout))

	for _, d := range a.Days {
		day := root.CreateElement(TagDay)
		day.CreateAttr(AttrDate, d.Date.Format(recurrence.DateLayout))

		for _, it := range d.Items {
			item := day.CreateElement(TagItem)
			if it.ID != "" {
				item.CreateAttr(AttrID, it.ID)
			}
			if it.SeriesID != "" {
				item.CreateAttr(AttrSeries, it.SeriesID)
			}
			item.CreateAttr(AttrStatus, string(it.Status))
			if it.Priority != "" {
				item.CreateAttr(AttrPriority, string(it.Priority))
			}
			if it.Virtual {
				item.CreateAttr(AttrVirtual, "true")
				item.CreateAttr(AttrIndex, strconv.Itoa(it.Index))
			}
			item.CreateElement(TagTitle).SetText(it.Title)
			item.CreateElement(TagDue).SetText(it.Due.Format(time.RFC3339))
		}
	}
	return doc
}

// Parse reads an agenda back from an XML document
func (a *Agenda) Parse(doc *etree.Document) error {
	if doc == nil || doc.Root() == nil {
		return fmt.Errorf("empty document")
	}

	root := doc.Root()
	if root.Tag != TagAgenda {
		return fmt.Errorf("invalid root tag: %s", root.Tag)
	}

	var err error
	if a.Start, err = parseDate(root, AttrStart); err != nil {
		return err
	}
	if a.End, err = parseDate(root, AttrEnd); err != nil {
		return err
	}

	a.Days = nil
	for _, dayElem := range root.SelectElements(TagDay) {
		day := Day{}
		if day.Date, err = parseDate(dayElem, AttrDate); err != nil {
			return err
		}

		for _, itemElem := range dayElem.SelectElements(TagItem) {
			item := Item{
				ID:       itemElem.SelectAttrValue(AttrID, ""),
				SeriesID: itemElem.SelectAttrValue(AttrSeries, ""),
				Status:   storage.Status(itemElem.SelectAttrValue(AttrStatus, "")),
				Priority: storage.Priority(itemElem.SelectAttrValue(AttrPriority, "")),
				Virtual:  itemElem.SelectAttrValue(AttrVirtual, "") == "true",
			}
			if item.Virtual {
				if item.Index, err = strconv.Atoi(itemElem.SelectAttrValue(AttrIndex, "0")); err != nil {
					return fmt.Errorf("invalid occurrence index: %w", err)
				}
			}
			if titleElem := itemElem.SelectElement(TagTitle); titleElem != nil {
				item.Title = titleElem.Text()
			}
			if dueElem := itemElem.SelectElement(TagDue); dueElem != nil {
				if item.Due, err = time.Parse(time.RFC3339, strings.TrimSpace(dueElem.Text())); err != nil {
					return fmt.Errorf("invalid due time: %w", err)
				}
			}
			day.Items = append(day.Items, item)
		}
		a.Days = append(a.Days, day)
	}

	return nil
}

func parseDate(elem *etree.Element, attr string) (time.Time, error) {
	v := elem.SelectAttrValue(attr, "")
	t, err := time.ParseInLocation(recurrence.DateLayout, v, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s attribute %q on <%s>: %w", attr, v, elem.Tag, err)
	}
	return t, nil
}

// WriteXML writes the agenda as indented XML
func (a *Agenda) WriteXML(w io.Writer) error {
	doc := a.ToXML()
	doc.Indent(2)
	_, err := doc.WriteTo(w)
	return err
}

// WriteText writes a plain listing, one line per item, skipping empty days
func (a *Agenda) WriteText(w io.Writer) error {
	for _, d := range a.Days {
		if len(d.Items) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s %s\n", d.Date.Format(recurrence.DateLayout), d.Date.Weekday().String()[:3]); err != nil {
			return err
		}
		for _, it := range d.Items {
			marker := " "
			if it.Virtual {
				marker = "~"
			}
			if _, err := fmt.Fprintf(w, "  %s %s  %-11s %s\n", marker, it.Due.Format("15:04"), it.Status, it.Title); err != nil {
				return err
			}
		}
	}
	return nil
}
