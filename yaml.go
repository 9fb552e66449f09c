/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package wiring

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

/**
YAML bean definition reader. Type names are symbolic and resolved through the
factory TypeRegistry on first use.

Example:

	beans:
	  connFactory:
	    type: app.ConnectionFactory
	    init-method: Start
	    destroy-method: Stop
	  userService:
	    type: app.UserService
	    autowire: byType
	    depends-on: [connFactory]
	    properties:
	      Timeout: 30s
	      Factory: { ref: connFactory }
	aliases:
	  users: userService
*/

type yamlDocument struct {
	Beans   map[string]*yamlBean `yaml:"beans"`
	Aliases map[string]string    `yaml:"aliases"`
}

type yamlBean struct {
	Type            string    `yaml:"type"`
	Parent          string    `yaml:"parent"`
	Scope           string    `yaml:"scope"`
	Lazy            *bool     `yaml:"lazy"`
	Abstract        *bool     `yaml:"abstract"`
	Autowire        string    `yaml:"autowire"`
	DependencyCheck string    `yaml:"dependency-check"`
	DependsOn       []string  `yaml:"depends-on"`
	InitMethod      string    `yaml:"init-method"`
	DestroyMethod   string    `yaml:"destroy-method"`
	FactoryBean     string    `yaml:"factory-bean"`
	FactoryMethod   string    `yaml:"factory-method"`
	ConstructorArgs yaml.Node `yaml:"constructor-args"`
	Properties      yaml.Node `yaml:"properties"`
}

func LoadDefinitions(factory ListableFactory, reader io.Reader, resource string) error {
	var doc yamlDocument
	if err := yaml.NewDecoder(reader).Decode(&doc); err != nil {
		return errors.Errorf("decode error of bean definitions resource '%s', %v", resource, err)
	}
	return registerDocument(factory, &doc, resource)
}

func ParseDefinitions(factory ListableFactory, content []byte, resource string) error {
	var doc yamlDocument
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return errors.Errorf("decode error of bean definitions resource '%s', %v", resource, err)
	}
	return registerDocument(factory, &doc, resource)
}

func registerDocument(factory ListableFactory, doc *yamlDocument, resource string) error {
	for name, yb := range doc.Beans {
		definition, err := buildDefinition(name, yb, resource)
		if err != nil {
			return err
		}
		if err := factory.RegisterDefinition(name, definition); err != nil {
			return err
		}
	}
	for alias, name := range doc.Aliases {
		if err := factory.RegisterAlias(name, alias); err != nil {
			return err
		}
	}
	return nil
}

func buildDefinition(name string, yb *yamlBean, resource string) (*BeanDefinition, error) {

	var definition *BeanDefinition
	switch {
	case yb.Parent != "":
		definition = ChildDefinition(yb.Parent)
		if yb.Type != "" {
			definition.TypeName = yb.Type
			definition.set |= setType
		}
	case yb.Type != "":
		definition = NewDefinitionByName(yb.Type)
	default:
		definition = &BeanDefinition{}
	}
	definition.WithResource(resource)

	switch yb.Scope {
	case "":
	case "singleton":
		definition.WithScope(ScopeSingleton)
	case "prototype":
		definition.WithScope(ScopePrototype)
	default:
		return nil, errors.Errorf("unknown scope '%s' of bean '%s' in resource '%s'", yb.Scope, name, resource)
	}

	if yb.Lazy != nil && *yb.Lazy {
		definition.WithLazy()
	}
	if yb.Abstract != nil && *yb.Abstract {
		definition.AsAbstract()
	}

	switch yb.Autowire {
	case "":
	case "no":
		definition.WithAutowire(AutowireNone)
	case "byName":
		definition.WithAutowire(AutowireByName)
	case "byType":
		definition.WithAutowire(AutowireByType)
	case "constructor":
		definition.WithAutowire(AutowireConstructor)
	default:
		return nil, errors.Errorf("unknown autowire mode '%s' of bean '%s' in resource '%s'", yb.Autowire, name, resource)
	}

	switch yb.DependencyCheck {
	case "":
	case "none":
		definition.WithDependencyCheck(DependencyCheckNone)
	case "objects":
		definition.WithDependencyCheck(DependencyCheckObjects)
	case "simple":
		definition.WithDependencyCheck(DependencyCheckSimple)
	case "all":
		definition.WithDependencyCheck(DependencyCheckAll)
	default:
		return nil, errors.Errorf("unknown dependency check mode '%s' of bean '%s' in resource '%s'", yb.DependencyCheck, name, resource)
	}

	if len(yb.DependsOn) > 0 {
		definition.WithDependsOn(yb.DependsOn...)
	}
	if yb.InitMethod != "" {
		definition.WithInitMethod(yb.InitMethod)
	}
	if yb.DestroyMethod != "" {
		definition.WithDestroyMethod(yb.DestroyMethod)
	}
	if yb.FactoryMethod != "" {
		definition.WithFactoryMethod(yb.FactoryBean, yb.FactoryMethod)
	}

	if yb.ConstructorArgs.Kind != 0 {
		if yb.ConstructorArgs.Kind != yaml.SequenceNode {
			return nil, errors.Errorf("constructor-args of bean '%s' in resource '%s' must be a list", name, resource)
		}
		for _, node := range yb.ConstructorArgs.Content {
			value, err := yamlValue(node, resource)
			if err != nil {
				return nil, errors.WithMessagef(err, "constructor arg of bean '%s'", name)
			}
			definition.AddConstructorArg(value)
		}
	}

	if yb.Properties.Kind != 0 {
		if yb.Properties.Kind != yaml.MappingNode {
			return nil, errors.Errorf("properties of bean '%s' in resource '%s' must be a map", name, resource)
		}
		// mapping node content alternates key and value, order preserved
		for i := 0; i+1 < len(yb.Properties.Content); i += 2 {
			key := yb.Properties.Content[i].Value
			value, err := yamlValue(yb.Properties.Content[i+1], resource)
			if err != nil {
				return nil, errors.WithMessagef(err, "property '%s' of bean '%s'", key, name)
			}
			definition.SetProperty(key, value)
		}
	}

	return definition, nil
}

/**
Converts a yaml node in to a configured value. A map of the single key 'ref' is
a bean reference, a map of the single key 'bean' is a nested definition,
sequences and other maps become managed collections.
*/
func yamlValue(node *yaml.Node, resource string) (interface{}, error) {

	switch node.Kind {

	case yaml.ScalarNode:
		var value interface{}
		if err := node.Decode(&value); err != nil {
			return nil, errors.Errorf("scalar decode error in resource '%s', %v", resource, err)
		}
		return value, nil

	case yaml.SequenceNode:
		var list ManagedList
		for _, el := range node.Content {
			value, err := yamlValue(el, resource)
			if err != nil {
				return nil, err
			}
			list = append(list, value)
		}
		return list, nil

	case yaml.MappingNode:
		if len(node.Content) == 2 {
			switch node.Content[0].Value {
			case "ref":
				return Ref(node.Content[1].Value), nil
			case "bean":
				var inner yamlBean
				if err := node.Content[1].Decode(&inner); err != nil {
					return nil, errors.Errorf("nested bean decode error in resource '%s', %v", resource, err)
				}
				return buildDefinition("(nested)", &inner, resource)
			}
		}
		table := make(ManagedMap)
		for i := 0; i+1 < len(node.Content); i += 2 {
			value, err := yamlValue(node.Content[i+1], resource)
			if err != nil {
				return nil, err
			}
			table[node.Content[i].Value] = value
		}
		return table, nil

	default:
		return nil, errors.Errorf("unsupported yaml node kind %d in resource '%s'", node.Kind, resource)
	}
}
