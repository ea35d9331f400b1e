package store

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aleksaelezovic/tristore/pkg/rdf"
)

// Namespace is a prefix binding
type Namespace struct {
	Prefix string
	URI    string
}

// DefaultNamespaces are bound in every store and cannot be rebound
var DefaultNamespaces = []Namespace{
	{Prefix: "xml", URI: rdf.XMLNamespace},
	{Prefix: "rdf", URI: rdf.RDFNamespace},
	{Prefix: "rdfs", URI: rdf.RDFSNamespace},
}

func (s *Store) isFixed(prefix, uri string) bool {
	for _, ns := range s.fixed {
		if ns.Prefix == prefix || ns.URI == uri {
			return true
		}
	}
	return false
}

// seedNamespaces writes the fixed bindings. Rewriting them is harmless.
func (s *session) seedNamespaces() error {
	for _, ns := range s.store.fixed {
		if err := s.txn.Set(TableNSPrefix, s.store.key.with([]byte(ns.Prefix)), namespaceValue(true, ns.URI)); err != nil {
			return err
		}
		if err := s.txn.Set(TableNSURI, s.store.key.with([]byte(ns.URI)), namespaceValue(true, ns.Prefix)); err != nil {
			return err
		}
	}
	return nil
}

// Bind maps prefix to uri, replacing any binding that holds either of them.
// Bindings touching a fixed namespace are left unchanged.
func (s *Store) Bind(prefix, uri string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.isFixed(prefix, uri) {
		s.logger.Debug("ignoring bind of fixed namespace", slog.String("prefix", prefix), slog.String("uri", uri))
		return nil
	}

	return s.write(func(sess *session) error {
		prefixKey := s.key.with([]byte(prefix))
		uriKey := s.key.with([]byte(uri))

		oldURI, err := sess.txn.Get(TableNSPrefix, prefixKey)
		switch {
		case err == nil:
			fixed, bound := parseNamespaceValue(oldURI)
			if fixed {
				return nil
			}
			if err := sess.txn.Delete(TableNSURI, s.key.with([]byte(bound))); err != nil {
				return err
			}
		case !errors.Is(err, ErrNotFound):
			return err
		}

		oldPrefix, err := sess.txn.Get(TableNSURI, uriKey)
		switch {
		case err == nil:
			fixed, bound := parseNamespaceValue(oldPrefix)
			if fixed {
				return nil
			}
			if err := sess.txn.Delete(TableNSPrefix, s.key.with([]byte(bound))); err != nil {
				return err
			}
		case !errors.Is(err, ErrNotFound):
			return err
		}

		if err := sess.txn.Set(TableNSPrefix, prefixKey, namespaceValue(false, uri)); err != nil {
			return err
		}
		return sess.txn.Set(TableNSURI, uriKey, namespaceValue(false, prefix))
	})
}

// Prefix returns the prefix bound to uri
func (s *Store) Prefix(uri string) (string, bool, error) {
	return s.lookupNamespace(TableNSURI, uri)
}

// Namespace returns the uri bound to prefix
func (s *Store) Namespace(prefix string) (string, bool, error) {
	return s.lookupNamespace(TableNSPrefix, prefix)
}

func (s *Store) lookupNamespace(table Table, key string) (string, bool, error) {
	if err := s.checkOpen(); err != nil {
		return "", false, err
	}
	txn, err := s.storage.Begin(false)
	if err != nil {
		return "", false, err
	}
	defer txn.Rollback()

	value, err := txn.Get(table, s.key.with([]byte(key)))
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup %s %q: %w", table, key, err)
	}
	_, bound := parseNamespaceValue(value)
	return bound, true, nil
}

// Namespaces iterates over every binding in prefix order
func (s *Store) Namespaces() (*NamespaceIterator, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	txn, err := s.storage.Begin(false)
	if err != nil {
		return nil, err
	}
	prefix := s.key.with()
	it, err := txn.Scan(TableNSPrefix, prefix)
	if err != nil {
		txn.Rollback()
		return nil, err
	}
	return &NamespaceIterator{txn: txn, it: it, skip: len(prefix)}, nil
}

// NamespaceIterator iterates over namespace bindings
type NamespaceIterator struct {
	txn     Transaction
	it      Iterator
	skip    int
	current Namespace
	err     error
	closed  bool
}

func (ni *NamespaceIterator) Next() bool {
	if ni.closed || ni.err != nil || !ni.it.Next() {
		return false
	}
	value, err := ni.it.Value()
	if err != nil {
		ni.err = err
		return false
	}
	_, uri := parseNamespaceValue(value)
	ni.current = Namespace{Prefix: string(ni.it.Key()[ni.skip:]), URI: uri}
	return true
}

// Namespace returns the current binding
func (ni *NamespaceIterator) Namespace() Namespace {
	return ni.current
}

func (ni *NamespaceIterator) Err() error {
	return ni.err
}

func (ni *NamespaceIterator) Close() error {
	if ni.closed {
		return nil
	}
	ni.closed = true
	ni.it.Close()
	return ni.txn.Rollback()
}

// Collect drains the iterator and closes it
func (ni *NamespaceIterator) Collect() ([]Namespace, error) {
	defer ni.Close()
	var namespaces []Namespace
	for ni.Next() {
		namespaces = append(namespaces, ni.Namespace())
	}
	return namespaces, ni.Err()
}
