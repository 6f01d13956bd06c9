package controllers

import (
	"reflect"
	"strings"
	"sync"

	"civicreport-be/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// registerValidators installs the issue enum tags on gin's validator and
// makes field errors report JSON names.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic("controllers: gin validator engine is not go-playground/validator")
		}
		v.RegisterTagNameFunc(jsonName)

		tags := map[string]validator.Func{
			"issuecategory": func(fl validator.FieldLevel) bool {
				return models.IssueCategory(fl.Field().String()).IsValid()
			},
			"issuepriority": func(fl validator.FieldLevel) bool {
				return models.IssuePriority(fl.Field().String()).IsValid()
			},
			"issuestatus": func(fl validator.FieldLevel) bool {
				return models.IssueStatus(fl.Field().String()).IsValid()
			},
		}
		for tag, fn := range tags {
			if err := v.RegisterValidation(tag, fn); err != nil {
				panic(err)
			}
		}
	})
}

func jsonName(f reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}
