// Package regions resolves the effective region set for a run. Every
// provider except rightsizing is pinned to us-east-1; rightsizing needs
// an explicit choice, either the --region override or an interactive
// pick from the enabled regions.
package regions

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/rs/zerolog"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/provider/awsconf"
)

// EC2API is the region-listing surface the selector needs.
type EC2API interface {
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
}

// Selector resolves the region list for a run.
type Selector struct {
	client EC2API
	in     io.Reader
	out    io.Writer
}

// NewSelector builds a selector reading interactive picks from in and
// writing the menu to out.
func NewSelector(client EC2API, in io.Reader, out io.Writer) *Selector {
	return &Selector{client: client, in: in, out: out}
}

// Effective applies the region rule. Without rightsizing the list is
// always ["us-east-1"], even against an override; with rightsizing the
// override wins, otherwise the user picks interactively.
func (s *Selector) Effective(ctx context.Context, rightsizing bool, override string) ([]string, error) {
	if !rightsizing {
		if override != "" {
			zerolog.Ctx(ctx).Warn().
				Str("region", override).
				Msg("region override ignored, only rightsizing honours it")
		}
		return []string{awsconf.DefaultRegion}, nil
	}
	if override != "" {
		return []string{override}, nil
	}
	return s.choose(ctx)
}

// Enabled lists the regions enabled for the account, sorted by name.
func (s *Selector) Enabled(ctx context.Context) ([]string, error) {
	out, err := s.client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}
	names := make([]string, 0, len(out.Regions))
	for _, region := range out.Regions {
		if region.RegionName != nil {
			names = append(names, *region.RegionName)
		}
	}
	sort.Strings(names)
	return names, nil
}

// choose prints a numbered menu of enabled regions and reads one pick.
func (s *Selector) choose(ctx context.Context) ([]string, error) {
	names, err := s.Enabled(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no enabled regions returned for this account")
	}

	fmt.Fprintln(s.out, "Select a region for rightsizing:")
	for i, name := range names {
		fmt.Fprintf(s.out, "  %2d) %s\n", i+1, name)
	}
	fmt.Fprint(s.out, "region> ")

	scanner := bufio.NewScanner(s.in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read region selection: %w", err)
		}
		return nil, fmt.Errorf("no region selected")
	}

	pick := strings.TrimSpace(scanner.Text())
	if n, err := strconv.Atoi(pick); err == nil {
		if n < 1 || n > len(names) {
			return nil, fmt.Errorf("region selection %d out of range", n)
		}
		return []string{names[n-1]}, nil
	}
	for _, name := range names {
		if name == pick {
			return []string{name}, nil
		}
	}
	return nil, fmt.Errorf("unknown region %q", pick)
}
