// Copyright 2026 The Saigen Authors
// SPDX-License-Identifier: Apache-2.0

package parsers

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/example42/saigen-repos/pkg/repository"
	"github.com/example42/saigen-repos/pkg/repository/errs"
)

func parseXML(data []byte, info *repository.RepositoryInfo) ([]repository.Package, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, errs.NewRepositoryError(info.Name, "invalid XML format", err)
	}

	xpath := info.Parsing.Patterns.PackageXPath
	if xpath == "" {
		xpath = ".//package"
	}
	fields := info.Parsing.Fields

	var packages []repository.Package
	for _, el := range doc.FindElements(xpath) {
		name := xmlField(el, fieldOrDefault(fields, "name", "name"), "")
		if name == "" {
			continue
		}
		packages = append(packages, repository.Package{
			Name:           name,
			Version:        xmlField(el, fieldOrDefault(fields, "version", "version"), "unknown"),
			Description:    xmlField(el, fieldOrDefault(fields, "description", "description"), ""),
			Homepage:       xmlField(el, fieldOrDefault(fields, "homepage", "homepage"), ""),
			License:        xmlField(el, fieldOrDefault(fields, "license", "license"), ""),
			Maintainer:     xmlField(el, fieldOrDefault(fields, "maintainer", "maintainer"), ""),
			RepositoryName: info.Name,
			Platform:       info.Platform,
		})
	}
	return packages, nil
}

// xmlField extracts a field from el using the same three conventions as the
// reference implementation: a leading "@" names an attribute, a "/" names an
// xpath-like descendant path, and anything else names a direct child
// element's text.
func xmlField(el *etree.Element, fieldConfig, def string) string {
	if fieldConfig == "" {
		return def
	}
	if strings.HasPrefix(fieldConfig, "@") {
		attr := el.SelectAttr(fieldConfig[1:])
		if attr == nil {
			return def
		}
		return attr.Value
	}
	found := el.FindElement(fieldConfig)
	if found == nil {
		return def
	}
	return found.Text()
}

func parseRPMMetadata(data []byte, info *repository.RepositoryInfo) ([]repository.Package, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, errs.NewRepositoryError(info.Name, "invalid RPM metadata XML", err)
	}

	var packages []repository.Package
	for _, el := range doc.FindElements(".//package") {
		pkg, ok := packageFromRPMElement(el, info)
		if ok {
			packages = append(packages, pkg)
		}
	}
	return packages, nil
}

func packageFromRPMElement(el *etree.Element, info *repository.RepositoryInfo) (repository.Package, bool) {
	name := el.SelectAttrValue("name", "")
	if name == "" {
		name = xmlField(el, "name", "")
	}
	if name == "" {
		return repository.Package{}, false
	}

	version := el.SelectAttrValue("version", "")
	if version == "" {
		version = xmlField(el, "version", "unknown")
	}
	description := xmlField(el, "description", "")
	if description == "" {
		description = xmlField(el, "summary", "")
	}
	homepage := xmlField(el, "url", "")
	if homepage == "" {
		homepage = xmlField(el, "homepage", "")
	}

	return repository.Package{
		Name:           name,
		Version:        version,
		Description:    description,
		Homepage:       homepage,
		License:        xmlField(el, "license", ""),
		Maintainer:     xmlField(el, "packager", ""),
		RepositoryName: info.Name,
		Platform:       info.Platform,
	}, true
}
