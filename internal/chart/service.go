package chart

import (
	"context"
	"fmt"
)

// Service exposes read-only views of the chart of accounts.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Node is an account placed in the tree.
type Node struct {
	Account
	Depth int `json:"depth"`
}

// Tree loads and validates the whole chart.
func (s *Service) Tree(ctx context.Context) (*Tree, error) {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	tree, err := BuildTree(accounts)
	if err != nil {
		return nil, fmt.Errorf("chart: build tree: %w", err)
	}
	return tree, nil
}

// Outline returns every account in tree order with its depth.
func (s *Service) Outline(ctx context.Context) ([]Node, error) {
	tree, err := s.Tree(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Node, 0, tree.Len())
	tree.Walk(func(a Account, depth int) {
		out = append(out, Node{Account: a, Depth: depth})
	})
	return out, nil
}

// Path returns the root-to-account chain for id.
func (s *Service) Path(ctx context.Context, id int64) ([]Account, error) {
	if _, err := s.repo.GetAccount(ctx, id); err != nil {
		return nil, err
	}
	tree, err := s.Tree(ctx)
	if err != nil {
		return nil, err
	}
	return tree.Path(id)
}

// AccountTypes lists account types with their origin.
func (s *Service) AccountTypes(ctx context.Context) ([]AccountType, error) {
	return s.repo.ListAccountTypes(ctx)
}
