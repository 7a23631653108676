// Package feed mantiene un feed XML con la cantidad objetivo de cada oferta publicada.
// El archivo solo se reescribe cuando cambia su forma canónica.
package feed

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/stocksync/internal/application/dto"
	"github.com/jhoicas/stocksync/internal/application/ports"
)

const (
	rootTag  = "stockFeed"
	offerTag = "offer"
)

var _ ports.ReportWriter = (*Writer)(nil)

type entry struct {
	AccountID string
	OfferID   string
	SKU       string
	Quantity  int
}

func (e entry) key() string { return e.AccountID + "\x00" + e.OfferID }

// Writer fusiona los resultados de cada job en el feed de path.
type Writer struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewWriter construye el writer del feed.
func NewWriter(path string) *Writer {
	return &Writer{path: path, now: time.Now}
}

// WriteReport implementa ports.ReportWriter.
func (w *Writer) WriteReport(_ context.Context, report *dto.SyncReportDTO) error {
	_, err := w.Merge(report.Results)
	return err
}

// Merge aplica los resultados al feed. Devuelve false si el contenido no cambió y no se escribió nada.
func (w *Writer) Merge(results []dto.SyncResultDTO) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entries, oldDigest, err := load(w.path)
	if err != nil {
		return false, err
	}
	for _, r := range results {
		if r.Job.OfferID == "" {
			continue
		}
		e := entry{AccountID: r.Job.AccountID, OfferID: r.Job.OfferID, SKU: r.Job.SKU, Quantity: r.Job.TargetQty}
		entries[e.key()] = e
	}

	doc := build(entries)
	digest, err := Digest(doc)
	if err != nil {
		return false, err
	}
	if digest == oldDigest {
		return false, nil
	}

	root := doc.Root()
	root.CreateAttr("digest", digest)
	root.CreateAttr("generated", w.now().UTC().Format(time.RFC3339))
	doc.Indent(2)
	return true, writeAtomic(w.path, doc)
}

// build genera el documento sin atributos volátiles, ofertas ordenadas por cuenta y oferta.
func build(entries map[string]entry) *etree.Document {
	list := make([]entry, 0, len(entries))
	for _, e := range entries {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].AccountID != list[j].AccountID {
			return list[i].AccountID < list[j].AccountID
		}
		return list[i].OfferID < list[j].OfferID
	})

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(rootTag)
	for _, e := range list {
		el := root.CreateElement(offerTag)
		el.CreateAttr("account", e.AccountID)
		el.CreateAttr("id", e.OfferID)
		el.CreateAttr("sku", e.SKU)
		el.CreateAttr("quantity", strconv.Itoa(e.Quantity))
	}
	return doc
}

// Digest SHA-256 (hex) de la forma canónica C14N del documento.
func Digest(doc *etree.Document) (string, error) {
	raw, err := doc.WriteToBytes()
	if err != nil {
		return "", fmt.Errorf("feed: serializar: %w", err)
	}
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Entity = map[string]string{}
	canonical, err := c14n.Canonicalize(dec)
	if err != nil {
		return "", fmt.Errorf("feed: canonicalizar: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// load lee el feed existente. Un archivo inexistente es un feed vacío.
func load(path string) (map[string]entry, string, error) {
	entries := make(map[string]entry)
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return entries, "", nil
		}
		return nil, "", fmt.Errorf("feed: leer %s: %w", path, err)
	}
	root := doc.SelectElement(rootTag)
	if root == nil {
		return nil, "", fmt.Errorf("feed: %s no contiene <%s>", path, rootTag)
	}
	for _, el := range root.SelectElements(offerTag) {
		qty, err := strconv.Atoi(el.SelectAttrValue("quantity", "0"))
		if err != nil {
			return nil, "", fmt.Errorf("feed: cantidad inválida en oferta %s: %w", el.SelectAttrValue("id", ""), err)
		}
		e := entry{
			AccountID: el.SelectAttrValue("account", ""),
			OfferID:   el.SelectAttrValue("id", ""),
			SKU:       el.SelectAttrValue("sku", ""),
			Quantity:  qty,
		}
		entries[e.key()] = e
	}
	return entries, root.SelectAttrValue("digest", ""), nil
}

func writeAtomic(path string, doc *etree.Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("feed: crear carpeta: %w", err)
	}
	tmp := path + ".tmp"
	if err := doc.WriteToFile(tmp); err != nil {
		return fmt.Errorf("feed: escribir: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("feed: reemplazar %s: %w", path, err)
	}
	return nil
}
